package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// control characters other than tab and newline
var controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

// SanitizeText strips control characters, trims surrounding whitespace and cuts s to
// at most maxLen runes. maxLen <= 0 means no limit.
func SanitizeText(s string, maxLen int) string {
	s = strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxLen]))
}
