package money

import "strings"

// MaskDigits keeps the last four digits of an identifier, e.g. "XXXXXXXX 9012".
func MaskDigits(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 4 {
		return "****"
	}
	return strings.Repeat("X", len(digits)-4) + " " + digits[len(digits)-4:]
}
