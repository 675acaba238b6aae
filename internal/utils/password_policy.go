package utils

import "unicode"

// MinPasswordLength is the shortest password the strength policy accepts.
const MinPasswordLength = 8

// PasswordCheck is the outcome of ValidatePasswordStrength.  Errors lists
// every rule the password violated, in rule order.
type PasswordCheck struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidatePasswordStrength applies the composition rules independently and
// collects every violation.
func ValidatePasswordStrength(password string) PasswordCheck {
	var upper, lower, digit bool
	n := 0
	for _, r := range password {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	errs := []string{}
	if n < MinPasswordLength {
		errs = append(errs, "password must be at least 8 characters long")
	}
	if !upper {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if !lower {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if !digit {
		errs = append(errs, "password must contain at least one digit")
	}
	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}
