package matching

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize canonicalizes free text for equality comparisons: lower-cased,
// trimmed, with one trailing "s" removed ("Gloves" -> "glove"). The plural
// stripping is deliberately naive; "glasses" becomes "glasse".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := strings.TrimSpace(cases.Lower(language.Und).String(text))
	return strings.TrimSuffix(s, "s")
}

// sameKey compares two values after normalization. Empty keys never match.
func sameKey(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
