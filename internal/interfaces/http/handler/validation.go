package handler

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// RegisterValidations installs the custom binding validations used by the
// API request types. Must run once before the router starts serving.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unsupported binding validator engine")
	}
	return v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return valueobject.Currency(fl.Field().String()).IsValid()
	})
}
