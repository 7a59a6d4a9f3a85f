package extract

import (
	"regexp"
	"strings"
)

// locationRe captures the span following a location-introducing word,
// greedily over word/space/comma/parenthesis/hyphen characters. A line
// break or period ends the span; the leading character must be a letter so
// that "at 5 pm" never yields a candidate.
var locationRe = regexp.MustCompile(
	`\b(?:venue:|location:|where:|in|at)\s+(?:the\s+)?([a-z(][a-z0-9 ,()\-]*)`)

// Location returns the longest candidate span, favouring descriptive
// venue strings over short false positives like "in time". Returns ""
// when nothing matches; it never fails.
func Location(text string) string {
	best := ""
	for _, m := range locationRe.FindAllStringSubmatch(text, -1) {
		cand := strings.TrimRight(m[1], " -")
		if len(cand) > len(best) {
			best = cand
		}
	}
	return best
}
