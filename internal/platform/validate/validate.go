// Package validate adapts go-playground/validator to echo's Validator hook
// and turns validation failures into 400 responses keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/pkg/phone"
)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the shared custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", validatePhone)
	return &Validator{v: v}
}

// Register adds a custom rule. Domain packages use it for their own enums.
func (cv *Validator) Register(tag string, fn validator.Func) error {
	return cv.v.RegisterValidation(tag, fn)
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func validatePhone(fl validator.FieldLevel) bool {
	return phone.Valid(fl.Field().String())
}

// FieldErrors maps the failing fields of err to short messages. It returns
// nil when err is not a validation failure.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// fieldPath drops the root struct name from the namespace:
// "CenterSignupRequest.doctors[1].phone" becomes "doctors[1].phone".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eqfield":
		return "does not match"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "phone":
		return "is not a valid phone number"
	case "uuid", "uuid4":
		return "must be a UUID"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// Bind decodes the request into dst and validates it. Failures come back as
// 400 HTTP errors whose message lists the offending fields.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		if fields := FieldErrors(err); fields != nil {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
				"message": "validation failed",
				"fields":  fields,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
