package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/zuricore/identity-service/app/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("password_strength", validatePasswordStrength)
	validate.RegisterValidation("name_format", validateNameFormat)
}

// validatePasswordStrength requires at least one uppercase letter, one
// lowercase letter and one digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasNumber bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
		if hasUpper && hasLower && hasNumber {
			return true
		}
	}
	return false
}

// validateNameFormat allows letters, spaces, hyphens and apostrophes.
func validateNameFormat(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

// validateRequest validates a request DTO and folds field errors into one
// InvalidInput message.
func validateRequest(req any) *errors.AppError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewInvalidInput(err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}
	return errors.NewInvalidInput(strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "password_strength":
		return fmt.Sprintf("%s must contain at least one uppercase letter, one lowercase letter, and one number", field)
	case "name_format":
		return fmt.Sprintf("%s can only contain letters, spaces, hyphens, and apostrophes", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// sanitizeInput trims whitespace, strips null bytes and caps length in runes.
// Passwords keep their special characters; preserveSpecialChars skips the
// control-character filter for them.
func sanitizeInput(input string, maxLength int, preserveSpecialChars bool) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if !preserveSpecialChars {
		var b strings.Builder
		for _, r := range input {
			if unicode.IsPrint(r) {
				b.WriteRune(r)
			}
		}
		input = b.String()
	}

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		input = string([]rune(input)[:maxLength])
	}
	return input
}

// sanitizeEmail normalizes an address; emails compare case-insensitively.
func sanitizeEmail(email string, maxLength int) string {
	return strings.ToLower(sanitizeInput(email, maxLength, false))
}

func sanitizeName(name string, maxLength int) string {
	return sanitizeInput(name, maxLength, false)
}
