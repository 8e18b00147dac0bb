// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// NormalizePhone strips spaces, dashes and brackets.
func NormalizePhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(phone))
}

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	// + prefix followed by 7-15 digits
	return phonePattern.MatchString(NormalizePhone(phone))
}

// IsE164 reports whether the phone carries an international prefix.
func IsE164(phone string) bool {
	return strings.HasPrefix(NormalizePhone(phone), "+") && ValidatePhone(phone)
}
