package login

import "unicode/utf8"

const (
	minPasswordLength = 6

	msgEmailRequired = "Email is required"
	msgPasswordShort = "Password should have at least 6 characters"
)

// Input is the submitted form. Values are kept exactly as typed.
type Input struct {
	Email    string
	Password string
}

// FieldErrors maps a form field name to its message.
type FieldErrors map[string]string

// Validate returns field-scoped errors, or nil when the input may be submitted.
func Validate(in Input) FieldErrors {
	errs := FieldErrors{}
	if in.Email == "" {
		errs["email"] = msgEmailRequired
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		errs["password"] = msgPasswordShort
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
