package validator

import (
	"mime"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator is the echo.Validator for request DTOs. Field errors name
// the json or query key the client sent, and the "mimetype" tag accepts a
// bare type/subtype media type.
type CustomValidator struct {
	v *validator.Validate
}

// New returns a CustomValidator with the request tags registered
func New() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("mimetype", isMimeType)
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func isMimeType(fl validator.FieldLevel) bool {
	mt, params, err := mime.ParseMediaType(fl.Field().String())
	return err == nil && len(params) == 0 && strings.Count(mt, "/") == 1 &&
		!strings.HasPrefix(mt, "/") && !strings.HasSuffix(mt, "/")
}
