package extract

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// Range patterns are checked first and short-circuit the scan: a time
	// range is unambiguous and of higher value than any other time mention
	// in the same text, and scanning on would re-report its sub-tokens as
	// spurious standalone times.
	crossPeriodRangeRe = regexp.MustCompile(
		`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\s*(?:-|–|to|until)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	samePeriodRangeRe = regexp.MustCompile(
		`\b(\d{1,2})(?::(\d{2}))?\s*(?:-|–|to|until)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

	clockAmPmRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	bareAmPmRe  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	clock24Re   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// extractTimes recovers clock times from normalized text. Range patterns
// return immediately with exactly two entries in textual order; otherwise
// the scattered patterns are scanned in order, each consuming its matched
// spans, and the distinct results are returned sorted.
func extractTimes(text string) []TimeOfDay {
	if m := crossPeriodRangeRe.FindStringSubmatch(text); m != nil {
		start, ok1 := clockTime(m[1], m[2], m[3])
		end, ok2 := clockTime(m[4], m[5], m[6])
		if ok1 && ok2 {
			return []TimeOfDay{start, end}
		}
	}
	if m := samePeriodRangeRe.FindStringSubmatch(text); m != nil {
		// One shared period token applies to both ends: "9-11am".
		start, ok1 := clockTime(m[1], m[2], m[5])
		end, ok2 := clockTime(m[3], m[4], m[5])
		if ok1 && ok2 {
			return []TimeOfDay{start, end}
		}
	}

	var times []TimeOfDay
	buf := text

	for _, m := range clockAmPmRe.FindAllStringSubmatch(buf, -1) {
		if t, ok := clockTime(m[1], m[2], m[3]); ok {
			times = append(times, t)
		}
	}
	buf = blankMatches(buf, clockAmPmRe)

	for _, m := range bareAmPmRe.FindAllStringSubmatch(buf, -1) {
		// A zero-padded "00" or an hour past 12 is a 24-hour token that
		// happens to precede am/pm text, not a 12-hour time.
		if m[1] == "00" {
			continue
		}
		if t, ok := clockTime(m[1], "", m[2]); ok {
			times = append(times, t)
		}
	}
	buf = blankMatches(buf, bareAmPmRe)

	for _, m := range clock24Re.FindAllStringSubmatch(buf, -1) {
		if t, ok := clockTime(m[1], m[2], ""); ok {
			times = append(times, t)
		}
	}

	return dedupeSortedTimes(times)
}

// clockTime converts captured hour/minute/period tokens to a 24-hour
// TimeOfDay. Out-of-range values are rejected, not clamped.
func clockTime(hour, minute, period string) (TimeOfDay, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return TimeOfDay{}, false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil {
			return TimeOfDay{}, false
		}
	}

	switch period {
	case "am":
		if h > 12 {
			return TimeOfDay{}, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h > 12 {
			return TimeOfDay{}, false
		}
		if h < 12 {
			h += 12
		}
	default:
		if h > 24 || m > 60 {
			return TimeOfDay{}, false
		}
		h %= 24
	}

	if m > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: h, Minute: m}, true
}

func dedupeSortedTimes(times []TimeOfDay) []TimeOfDay {
	sort.Slice(times, func(i, j int) bool { return times[i].Minutes() < times[j].Minutes() })
	var out []TimeOfDay
	for _, t := range times {
		if len(out) == 0 || out[len(out)-1].Minutes() != t.Minutes() {
			out = append(out, t)
		}
	}
	return out
}
