package utils

import "strings"

// MaskEmail hides the local part of an address for log output, keeping
// its first and last characters: "ana.souza@x.com" -> "a*******a@x.com".
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email
	}
	local := []rune(email[:at])
	domain := email[at:]
	switch len(local) {
	case 0:
		return email
	case 1, 2:
		return string(local[0]) + strings.Repeat("*", len(local)-1) + domain
	}
	return string(local[0]) + strings.Repeat("*", len(local)-2) + string(local[len(local)-1]) + domain
}

// NormalizeEmail trims and lower-cases an address; emails are compared
// case-insensitively everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
