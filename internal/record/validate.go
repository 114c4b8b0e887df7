package record

import (
	"fmt"
	"strings"

	"github.com/gookit/validate"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// draftRules mirrors the required-field contract of the record form.
type draftRules struct {
	ShopName  string `validate:"required" label:"shop name"`
	VisitDate string `validate:"required" label:"visit date"`
	Rating    int    `validate:"int|min:0|max:5" label:"rating"`
}

// Validate checks a draft before it is persisted. Blank shop names and visit
// dates count as missing. Returns an error wrapping types.ErrValidation.
func Validate(d types.Draft) error {
	rules := &draftRules{
		ShopName:  strings.TrimSpace(d.ShopName),
		VisitDate: strings.TrimSpace(d.VisitDate),
		Rating:    d.Rating,
	}
	v := validate.Struct(rules)
	if !v.Validate() {
		return fmt.Errorf("%w: %s", types.ErrValidation, v.Errors.One())
	}
	return nil
}
