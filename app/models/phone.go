package models

import "strings"

// NormalizePhone keeps digits only and rewrites local Indonesian numbers to
// the 62 country prefix: 0812… → 62812…, 812… → 62812….
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	case strings.HasPrefix(digits, "8"):
		return "62" + digits
	}
	return digits
}
