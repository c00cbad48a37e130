package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var newlinePattern = regexp.MustCompile(`[\r\n]+`)

// Text trims surrounding space and drops control characters from user-supplied labels
func Text(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// LogString flattens a value onto one line so it cannot forge log entries
func LogString(s string) string {
	return newlinePattern.ReplaceAllString(s, " ")
}
