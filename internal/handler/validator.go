package handler

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var seatIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,31}$`)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface.  Besides the built-in tags it knows "seatid", which accepts
// identifiers such as A1 or balcony-12.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator with the custom tags registered.
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("seatid", func(fl validator.FieldLevel) bool {
		return seatIDPattern.MatchString(fl.Field().String())
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
