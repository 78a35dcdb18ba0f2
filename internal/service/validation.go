package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{4,20}$`)

// PasswordSpecials are the characters that satisfy the "special" class of
// the password policy.
const PasswordSpecials = "!@#$%^&*()-_=+[]{};:,.?/"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their form/json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	// only requires an "@" and a "."
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.Contains(s, "@") && strings.Contains(s, ".")
	})
	return v
}

// validateStruct runs struct tag validation and converts the first failure
// into a validation *Error naming the field.
func (s *Service) validateStruct(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: KindValidation, Message: "invalid input", Err: err}
	}
	fe := verrs[0]
	return invalid(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "username":
		return "username must be 4-20 letters, digits or underscores"
	case "loose_email":
		return "please enter a valid email address"
	case "min":
		return label + " must be at least " + fe.Param() + " characters"
	case "max":
		return label + " must be at most " + fe.Param() + " characters"
	case "datetime":
		return label + " must be a date in YYYY-MM-DD format"
	}
	return label + " is invalid"
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// checkPassword enforces the length rules, the optional character-class
// policy and the confirmation match.
func (s *Service) checkPassword(field, password, confirm string) error {
	if len(password) < 8 {
		return invalid(field, "password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		return invalid(field, "password must be at most 72 bytes")
	}
	if s.opts.RequirePasswordClasses && !hasAllClasses(password) {
		return invalid(field, "password must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	if password != confirm {
		return invalid("confirm_password", "passwords do not match")
	}
	return nil
}

func hasAllClasses(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
