package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var isoShapeRe = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)

// parseDate resolves a date phrase against a reference instant using the
// locale-aware parser (day-month-year order, future-preferring when the
// year is ambiguous). It is the only place raw text touches a calendar
// calculation. Failures are reported as ok=false, never as errors: a
// candidate that does not resolve is simply dropped by the caller.
func parseDate(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)

	// ISO-shaped tokens are already unambiguous; the day-first locale
	// parser would reject them.
	if isoShapeRe.MatchString(text) {
		t, err := time.Parse("2006-1-2", text)
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(t, ref.Location()), true
	}

	cfg := &dateparser.Configuration{
		CurrentTime:         ref,
		DateOrder:           dateparser.DMY,
		PreferredDateSource: dateparser.Future,
	}

	dt, err := dateparser.Parse(cfg, text)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}

	return dateOnly(dt.Time, ref.Location()), true
}
