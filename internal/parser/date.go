package parser

import (
	"regexp"
	"strings"
	"time"
)

const monthNames = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// datePatterns are tried in order; the first match wins.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b` + monthNames + `\.? \d{1,2},? \d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2} ` + monthNames + `\.?,? \d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
}

// FindDate returns the first date-looking substring of text, or "".
func FindDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return CleanText(m)
		}
	}
	return ""
}

var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
}

// NormalizeDate converts a textual date to YYYY-MM-DD. Slash dates are
// ambiguous between day-first and month-first and are left unparsed.
func NormalizeDate(s string) (string, bool) {
	s = CleanText(strings.ReplaceAll(s, ".", ""))
	s = strings.Replace(s, "Sept ", "Sep ", 1)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// NormalizeOrKeep returns the normalized date, or s unchanged when it cannot be parsed.
func NormalizeOrKeep(s string) string {
	if d, ok := NormalizeDate(s); ok {
		return d
	}
	return s
}
