package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate returns the first failed rule as an apperror.ValidationError
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperror.Validation(fe.Field(), "is required")
	case "oneof":
		return &apperror.InvalidEnumError{Field: fe.Field(), Value: fmt.Sprint(fe.Value()), Allowed: strings.Fields(fe.Param())}
	default:
		return apperror.Validation(fe.Field(), "failed %s validation", fe.Tag())
	}
}
