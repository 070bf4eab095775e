package widgets

import (
	"regexp"
	"sort"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[\+]?[(]?[0-9]{3}[)]?[-\s\.]?[0-9]{3}[-\s\.]?[0-9]{4,6}$`)
)

func ValidateEmail(email string) bool { return emailRe.MatchString(email) }

func ValidatePhone(phone string) bool { return phoneRe.MatchString(phone) }

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidateForm checks the "email" and "phone" fields when present. Errors
// are returned in field name order.
func ValidateForm(values map[string]string) []FieldError {
	var errs []FieldError
	if v, ok := values["email"]; ok && !ValidateEmail(v) {
		errs = append(errs, FieldError{Field: "email", Message: "Please enter a valid email address"})
	}
	if v, ok := values["phone"]; ok && !ValidatePhone(v) {
		errs = append(errs, FieldError{Field: "phone", Message: "Please enter a valid phone number"})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}
