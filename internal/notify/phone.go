package notify

import "strings"

// NormalizePhone turns a free-form Indonesian phone number into the
// 62xxxxxxxxxx form the gateway expects. It returns "" when no digits remain.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "62"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	}
	return "62" + digits
}
