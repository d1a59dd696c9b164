package common

import "strings"

// NormalizeKey lower-cases s and strips spaces, dashes and underscores, so
// "Month Year", "month_year" and "MonthYear" compare equal.
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IndexOfAny returns the position of the first header matching any of the
// aliases after normalisation, or -1.
func IndexOfAny(headers []string, aliases ...string) int {
	for i, h := range headers {
		key := NormalizeKey(strings.TrimPrefix(h, "\ufeff"))
		for _, alias := range aliases {
			if key == NormalizeKey(alias) {
				return i
			}
		}
	}
	return -1
}
