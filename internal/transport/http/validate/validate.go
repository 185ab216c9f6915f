// Package validate holds the shared validator instance and folds its errors
// into the domain error shape the response layer renders.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/localmart/marketplace-service/internal/domain"
)

var v *validator.Validate

func init() {
	v = validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("password_strength", passwordStrength)
	_ = v.RegisterValidation("username_format", usernameFormat)
}

// Struct validates a request DTO by its validate tags. The returned error is
// a validation_failed with one meta entry per offending field.
func Struct(req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.ErrValidation(err.Error())
	}

	meta := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		meta[fieldName(fe)] = messageFor(fe)
	}
	return domain.ErrValidationMeta("invalid request", meta)
}

// IsUUID reports whether s parses as a UUID. Path params are checked with
// this before hitting the database.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid uuid"
	case "password_strength":
		return "must contain an uppercase letter, a lowercase letter and a digit"
	case "username_format":
		return "may only contain lowercase letters, digits and underscores"
	default:
		return "is invalid"
	}
}

// passwordStrength requires at least one uppercase letter, one lowercase
// letter and one digit.
func passwordStrength(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if hasUpper && hasLower && hasDigit {
			return true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// usernameFormat allows lowercase ascii letters, digits and underscores.
func usernameFormat(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
