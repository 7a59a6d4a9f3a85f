package extract

import (
	"regexp"
	"strings"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankLines   = regexp.MustCompile(` *\n[ \n]*`)
)

// Normalize joins a message's subject and body into the single lowercase,
// whitespace-collapsed string every pattern matcher searches. Line breaks
// are preserved (collapsed to one) because the location pattern terminates
// on them.
func Normalize(subject, body string) string {
	s := subject + "\n" + body
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalWS.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
