package payload

import "github.com/larder-io/larder/internal/db"

// UnitCreate is the body of POST /api/v1/units.
type UnitCreate struct {
	Name            string `json:"name" validate:"required,notblank,max=255"`
	Abbreviation    string `json:"abbreviation" validate:"max=32"`
	UseAbbreviation bool   `json:"use_abbreviation"`
	// Fraction defaults to true when omitted.
	Fraction    *bool  `json:"fraction"`
	Description string `json:"description" validate:"max=2000"`
}

func (p *UnitCreate) normalize() { trim(&p.Name) }

// ApplyTo copies the payload onto u.
func (p UnitCreate) ApplyTo(u *db.Unit) {
	u.Name = p.Name
	u.Abbreviation = p.Abbreviation
	u.UseAbbreviation = p.UseAbbreviation
	u.Fraction = valueOr(p.Fraction, true)
	u.Description = p.Description
}

// UnitUpdate is the body of PUT and PATCH /api/v1/units/{id}.
type UnitUpdate struct {
	Name            *string `json:"name" validate:"omitnil,notblank,max=255" replace:"required"`
	Abbreviation    *string `json:"abbreviation" validate:"omitnil,max=32"`
	UseAbbreviation *bool   `json:"use_abbreviation" default:"false"`
	Fraction        *bool   `json:"fraction" default:"true"`
	Description     *string `json:"description" validate:"omitnil,max=2000"`
}

func (p *UnitUpdate) normalize() { trim(p.Name) }

// ApplyTo replaces every field of u; omitted fields take their default.
func (p UnitUpdate) ApplyTo(u *db.Unit) {
	u.Name = valueOr(p.Name, u.Name)
	u.Abbreviation = valueOr(p.Abbreviation, "")
	u.UseAbbreviation = valueOr(p.UseAbbreviation, false)
	u.Fraction = valueOr(p.Fraction, true)
	u.Description = valueOr(p.Description, "")
}
