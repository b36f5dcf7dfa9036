package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// RequestValidator checks the struct-tag constraints of incoming API
// payloads before any backend call is made.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("field %s failed validation on %s", fe.Field(), fe.Tag())
	}
	return err
}
