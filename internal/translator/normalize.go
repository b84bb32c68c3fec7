package translator

import (
	"regexp"
	"strings"
)

var operatorSpacing = regexp.MustCompile(`\s*([<>=])\s*`)

// Normalize lower-cases the sentence, pads comparison symbols with spaces,
// collapses runs of whitespace and drops trailing sentence punctuation.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = operatorSpacing.ReplaceAllString(s, " $1 ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, "?.!")
	return strings.TrimSpace(s)
}
