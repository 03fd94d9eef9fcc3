// Package validator holds the shared go-playground instance. Modules register
// their enum tags on it at start-up.
package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var checks a single value, e.g. a path parameter, against tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterEnum adds tag as a one-of check on string fields. The empty string
// passes so the tag composes with omitempty and required.
func (val *Validator) RegisterEnum(tag string, values ...string) error {
	if len(values) == 0 {
		return fmt.Errorf("enum %q needs at least one value", tag)
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return val.v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, ok := allowed[s]
		return ok
	})
}
