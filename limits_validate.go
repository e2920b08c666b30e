package muepub

import "github.com/go-playground/validator/v10"

var limitsValidator = validator.New()

// Validate reports whether every nested limit field satisfies its
// required/gt constraints, catching a caller-supplied Limits with a zero
// or negative cap before it reaches the parsing pipeline.
func (l Limits) Validate() error {
	if err := limitsValidator.Struct(l); err != nil {
		return errInvalid("invalid limits", err)
	}
	return nil
}
