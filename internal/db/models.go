package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains the common fields shared by all models.
// ID uses UUID v7 (time-ordered) for efficient B-tree indexing. CreatedAt and
// UpdatedAt are managed automatically by GORM.
//
// Column defaults live in the migrations only: a GORM default tag makes GORM
// leave zero values out of INSERTs, so an explicit false would be replaced by
// the column default.
type Base struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate generates a new UUID v7 if the ID is not already set.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == (uuid.UUID{}) {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

// -----------------------------------------------------------------------------
// Foods
// -----------------------------------------------------------------------------

// Food is an ingredient kept in the pantry. Names are unique.
type Food struct {
	Base
	Name        string `gorm:"not null;uniqueIndex" json:"name"`
	Description string `gorm:"not null" json:"description"`
	OnHand      bool   `gorm:"not null" json:"on_hand"`
}

// -----------------------------------------------------------------------------
// Units
// -----------------------------------------------------------------------------

// Unit is a unit of measure ("cup", "gram"). Fraction controls whether
// quantities in this unit are displayed as fractions.
type Unit struct {
	Base
	Name            string `gorm:"not null;uniqueIndex" json:"name"`
	Abbreviation    string `gorm:"not null" json:"abbreviation"`
	UseAbbreviation bool   `gorm:"not null" json:"use_abbreviation"`
	Fraction        bool   `gorm:"not null" json:"fraction"`
	Description     string `gorm:"not null" json:"description"`
}

// -----------------------------------------------------------------------------
// Tags
// -----------------------------------------------------------------------------

// Tag labels foods. Both the display name and the URL slug are unique.
type Tag struct {
	Base
	Name string `gorm:"not null;uniqueIndex" json:"name"`
	Slug string `gorm:"not null;uniqueIndex" json:"slug"`
}
