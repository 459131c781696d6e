// Package validation checks request structs with go-playground/validator
// before anything reaches the store.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	svcErr "github.com/oggyb/codev-api/internal/errors"
)

var hexColor = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return hexColor.MatchString(fl.Field().String())
		})
		// bytes, not runes
		_ = validate.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= MaxPasswordBytes
		})
	})
	return validate
}

// Struct validates v and returns an InvalidArgument error listing every
// failed field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return svcErr.InvalidArgument("%s", strings.Join(msgs, "; "))
	}
	return svcErr.InvalidArgument("%v", err)
}

// Color reports whether s is exactly six hex digits.
func Color(s string) bool { return hexColor.MatchString(s) }

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	case "hexcolor6":
		return field + " must be a 6-digit hexadecimal color"
	case "bcryptlen":
		return fmt.Sprintf("%s must be at most %d bytes", field, MaxPasswordBytes)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
