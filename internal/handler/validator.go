package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Field names in errors are the JSON names.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator installed on the Echo instance.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// bindAndValidate decodes the body into dst and validates it.  A missing
// required field yields requiredMsg so each endpoint keeps its own wording;
// any other rule names the offending field.
func bindAndValidate(c echo.Context, dst any, requiredMsg string) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Validation("Invalid request body")
	}
	err := c.Validate(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() != "required" {
		return apperror.Validation(fmt.Sprintf("Invalid %s", verrs[0].Field()))
	}
	return apperror.Validation(requiredMsg)
}
