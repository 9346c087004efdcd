package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/obd"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("vin", func(fl validator.FieldLevel) bool {
		return assets.ValidVIN(fl.Field().String())
	})
	_ = v.RegisterValidation("dtc", func(fl validator.FieldLevel) bool {
		return obd.ValidCode(fl.Field().String())
	})
	return v
}

// Validate checks the validate struct tags of v. Failures are returned as
// a *apperr.ValidationError keyed by JSON field path.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	verr := apperr.NewValidationError()
	for _, fe := range errs {
		verr.Add(fieldPath(fe.Namespace()), message(fe))
	}
	return verr
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "vin":
		return "must be a 17 character VIN without I, O or Q"
	case "dtc":
		return fmt.Sprintf("%q is not a valid diagnostic trouble code", fe.Value())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "ne":
		return "must not be " + fe.Param()
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
