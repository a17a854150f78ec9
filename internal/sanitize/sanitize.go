// Package sanitize cleans and validates untrusted contact field values.
// All functions are pure: they return a cleaned value or a boolean verdict
// and never fail. Callers decide whether an invalid optional value becomes
// NULL (ingestion) or a rejected field (interactive edit).
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Field length ceilings.
const (
	MaxNameLen  = 100
	MaxEmailLen = 254
	MaxURLLen   = 2048
)

// Year bounds for dates such as birthdays and date-met.
const (
	MinYear       = 1900
	MaxYearsAhead = 10
)

var (
	angleTagPattern = regexp.MustCompile(`<[^>]*>`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// FreeText trims whitespace, strips markup-like angle-bracket sequences, and
// truncates to maxLen runes. Empty input yields empty output.
func FreeText(input string, maxLen int) string {
	cleaned := strings.TrimSpace(angleTagPattern.ReplaceAllString(input, ""))
	if maxLen > 0 {
		cleaned = truncate(cleaned, maxLen)
	}
	return strings.TrimSpace(cleaned)
}

// Name cleans a contact name: free-text rules plus a blacklist of characters
// that could break rendering or queries. An empty result means the value is
// unusable and the caller must treat the record as invalid.
func Name(input string) string {
	cleaned := FreeText(input, 0)
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, cleaned)
	return strings.TrimSpace(truncate(cleaned, MaxNameLen))
}

// ValidEmail reports whether s looks like local@domain.tld and fits the
// length ceiling.
func ValidEmail(s string) bool {
	return len(s) <= MaxEmailLen && emailPattern.MatchString(s)
}

// ValidURL reports whether s parses as an absolute http(s) URL.
func ValidURL(s string) bool {
	if len(s) > MaxURLLen {
		return false
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// ValidPhone reports whether s contains only digits, spaces, parentheses,
// dashes, and an optional leading plus, with 7 to 15 digits total.
func ValidPhone(s string) bool {
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// ValidDate reports whether s is a literal YYYY-MM-DD string naming a real
// calendar date with a plausible year.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false
	}
	year := parsed.Year()
	return year >= MinYear && year <= time.Now().Year()+MaxYearsAhead
}

// ValidCoordinate reports whether the pair is within valid WGS84 ranges.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
