package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{5,15}$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z\- ]{1,30}$`)

	// password rules; RE2 has no lookaheads so each requirement is its own check
	passwordShape   = regexp.MustCompile(`^[^\r\n\x{0085}\x{2028}\x{2029}]{8,16}$`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordSpecial = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Username reports whether s is 5-15 lowercase letters, digits, underscores or hyphens.
func Username(s string) bool { return usernamePattern.MatchString(s) }

// PersonName reports whether s is 1-30 letters, hyphens or spaces.
func PersonName(s string) bool { return namePattern.MatchString(s) }

// Password reports whether s is 8-16 characters with at least one digit, one lowercase,
// one uppercase and one non-word character, and no spaces.
func Password(s string) bool {
	return passwordShape.MatchString(s) &&
		!strings.Contains(s, " ") &&
		passwordDigit.MatchString(s) &&
		passwordLower.MatchString(s) &&
		passwordUpper.MatchString(s) &&
		passwordSpecial.MatchString(s)
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonTagName)
	_ = v.RegisterValidation("username", stringRule(Username))
	_ = v.RegisterValidation("password", stringRule(Password))
	_ = v.RegisterValidation("personname", stringRule(PersonName))
	_ = v.RegisterValidation("notblank", validators.NotBlank)
}

// Validator returns the process-wide validator with the user field rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		register(validate)
	})
	return validate
}

// Struct validates a struct using its `validate` tags.
func Struct(s any) error {
	return Validator().Struct(s)
}

// Var validates a single value against a tag expression.
func Var(field any, tag string) error {
	return Validator().Var(field, tag)
}

// Init configures Gin's binding validator with the same rules and JSON tag names,
// so `binding:"username"` behaves like `validate:"username"`.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

// ToDetails converts validation/binding errors into a map[field]message.
// The API never returns these; they are logged next to the generic error.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			field := fe.Namespace()
			if field == "" {
				field = fe.Field()
			}
			out[field] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email"
	case "username":
		return "must be 5-15 lowercase letters, digits, '_' or '-'"
	case "password":
		return "must be 8-16 characters with a digit, lowercase, uppercase and special character, without spaces"
	case "personname":
		return "must be 1-30 letters, '-' or spaces"
	case "min":
		if isCollectionKind(fe.Kind()) {
			return "must contain at least " + param + " item(s)"
		}
		return "must be at least " + param
	case "gt":
		return "must be greater than " + param
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", fe.Tag(), param)
		}
		return fmt.Sprintf("validation failed for '%s'", fe.Tag())
	}
}

func isCollectionKind(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}
