package handler

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// decimal_amount accepts any string shopspring/decimal can parse; sign and scale
	// are ledger rules and are checked by the service.
	if err := vld.RegisterValidation("decimal_amount", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register 'decimal_amount' validation: %w", err)
	}

	return vld, nil
}

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// validateStruct reports the first failing field as an invalid_input error.
func validateStruct(payload interface{}) *errors.AppError {
	vld, err := getValidator()
	if err != nil {
		return errors.Internal("validator unavailable", err)
	}

	if err := vld.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return formatValidationError(validationErrors[0])
		}
		return errors.NewAppError(errors.InvalidInput, "validation failed").WithDetails(err.Error())
	}
	return nil
}

func formatValidationError(fe validator.FieldError) *errors.AppError {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' is required", field)
	case "max":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' must be at most %s characters", field, fe.Param())
	case "gt":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' must be greater than %s", field, fe.Param())
	case "oneof":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' must be one of [%s]", field, fe.Param())
	case "email":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' must be a valid email", field)
	case "decimal_amount":
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' must be a decimal number", field)
	default:
		return errors.NewAppErrorf(errors.InvalidInput, "'%s' failed '%s' check", field, fe.Tag())
	}
}
