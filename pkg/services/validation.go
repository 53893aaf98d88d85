package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct checks validate tags and reports failures as apperrors.ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, strings.Join(FormatValidationErrors(verrs), "; "))
}

// FormatValidationErrors renders one line per failed field.
func FormatValidationErrors(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		line := fmt.Sprintf("field '%s' failed on '%s'", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			line += fmt.Sprintf(" (%s)", fe.Param())
		}
		out = append(out, line)
	}
	return out
}
