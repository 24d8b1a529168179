package payload

import "github.com/larder-io/larder/internal/db"

// FoodCreate is the body of POST /api/v1/foods.
type FoodCreate struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=2000"`
	OnHand      bool   `json:"on_hand"`
}

func (p *FoodCreate) normalize() { trim(&p.Name) }

// ApplyTo copies the payload onto f.
func (p FoodCreate) ApplyTo(f *db.Food) {
	f.Name = p.Name
	f.Description = p.Description
	f.OnHand = p.OnHand
}

// FoodUpdate is the body of PUT and PATCH /api/v1/foods/{id}.
type FoodUpdate struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=255" replace:"required"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	OnHand      *bool   `json:"on_hand" default:"false"`
}

func (p *FoodUpdate) normalize() { trim(p.Name) }

// ApplyTo replaces every field of f; omitted fields take their default.
func (p FoodUpdate) ApplyTo(f *db.Food) {
	f.Name = valueOr(p.Name, f.Name)
	f.Description = valueOr(p.Description, "")
	f.OnHand = valueOr(p.OnHand, false)
}
