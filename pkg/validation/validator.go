package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Validates civil.Date fields through their string form, so `required` rejects the zero date.
// - Registers alias tags for common validations.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Configure(v)
	}
}

// Configure applies the tag name func, custom types and aliases to v.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(civil.Date)
		if !ok || !d.IsValid() {
			return ""
		}
		return d.String()
	}, civil.Date{})
	v.RegisterAlias("phone", "max=32,excludesall=<>")
	v.RegisterAlias("name", "max=100")
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "must be of type " + ute.Type.String()}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// FromBindError tags an error returned by gin's ShouldBind* so the error mapper can
// pick the status: unparseable dates and broken JSON are malformed input, struct
// tag failures are validation errors with per-field details.
func FromBindError(err error) error {
	if err == nil {
		return nil
	}

	var pe *time.ParseError
	if errors.As(err, &pe) {
		return apperror.NewMalformed("Invalid date format : "+pe.Error(), err)
	}
	if errors.Is(err, io.EOF) {
		return apperror.NewMalformed("request body is required", err)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := ToDetails(err)
		return apperror.NewFieldValidation(JoinDetails(details), details)
	}

	details := ToDetails(err)
	return &apperror.Error{
		Kind:    apperror.MalformedInput,
		Message: JoinDetails(details),
		Fields:  details,
		Err:     err,
	}
}

// JoinDetails renders details as "field : message" lines, sorted by field.
func JoinDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+" : "+details[k])
	}
	return strings.Join(lines, "\n")
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "numeric":
		return "must be numeric"
	case "excludesall":
		return "must not contain any of '" + param + "'"
	case "phone":
		return "must be a valid phone number"
	case "name":
		return "must be at most 100 characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
