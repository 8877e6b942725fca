package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/blokfs/blokfs/pkg/errors"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// formatValidationError reports the first failed field with its yaml-facing namespace
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return errors.Wrap(errors.ErrCodeConfigValidation,
			fmt.Sprintf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value()),
			err)
	}
	return errors.Wrap(errors.ErrCodeConfigValidation, "validation failed", err)
}
