// Package normalize maps raw scraped strings into their canonical forms.
// Every function is pure; the scraper calls them field by field.
package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanText collapses runs of whitespace (including newlines) to single
// spaces and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// NormalizeType maps a free-text project type onto one of the three
// enumerated categories. Unmatched values pass through uppercased; empty
// input stays empty and means "unknown".
func NormalizeType(raw string) string {
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(upper, "PONADOSIEDLOW"):
		return "PONADOSIEDLOWE"
	case strings.Contains(upper, "OSIEDLOW"):
		return "OSIEDLOWE"
	case strings.Contains(upper, "OGÓLNOMIEJSK"), strings.Contains(upper, "MIEJSK"):
		return "OGÓLNOMIEJSKIE"
	default:
		return upper
	}
}

// ParseCost parses a localized cost string into whole currency units by
// stripping every non-digit character. The policy is deliberately lossy:
// "12 345,67 zł" becomes 1234567, since thousands separators and the decimal
// comma are removed alike. Empty or digit-free input parses to 0.
func ParseCost(raw string) int64 {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	value, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
