package payload

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/larder-io/larder/internal/db"
)

// TagCreate is the body of POST /api/v1/tags.
type TagCreate struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
	// Slug is derived from Name when empty.
	Slug string `json:"slug" validate:"omitempty,max=255"`
}

func (p *TagCreate) normalize() { trim(&p.Name) }

// ApplyTo copies the payload onto t, deriving the slug when none is given.
func (p TagCreate) ApplyTo(t *db.Tag) {
	t.Name = p.Name
	t.Slug = p.Slug
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
}

// TagUpdate is the body of PUT and PATCH /api/v1/tags/{id}.
type TagUpdate struct {
	Name *string `json:"name" validate:"omitnil,notblank,max=255" replace:"required"`
	Slug *string `json:"slug" validate:"omitnil,min=1,max=255"`
}

func (p *TagUpdate) normalize() { trim(p.Name) }

// ApplyTo replaces every field of t. Without an explicit slug the slug is
// derived from the new name.
func (p TagUpdate) ApplyTo(t *db.Tag) {
	t.Name = valueOr(p.Name, t.Name)
	t.Slug = valueOr(p.Slug, Slugify(t.Name))
}

// Slugify lower-cases s, strips diacritics and joins the remaining letter and
// digit runs with hyphens: "Crème Brûlée!" becomes "creme-brulee".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Und).String(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
