package service

import (
	"errors"

	"ladder-console/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateInput converts struct tag failures into a ValidationError carrying msg.
func validateInput(input any, msg string) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return domain.NewValidationError(fieldErrs[0].Field(), msg)
	}
	return domain.NewValidationError("", msg)
}
