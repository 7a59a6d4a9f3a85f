package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Regex building blocks shared by the date strategies. All matching runs
// over normalized (lowercase) text.
const (
	monthPat = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	ordPat   = `(?:st|nd|rd|th)?`
	// listSep joins day numbers in connected lists: "8, 9", "8 & 9",
	// "8 and 9", "8, 9, and 10".
	listSep = `(?:\s*,\s*(?:and\s+)?|\s*&\s*|\s+and\s+)`
)

var (
	// Range strategy: "from 14 august to 16 september [2025]",
	// "14th to 16th august 2025" / "14-16 august", "august 14-16[, 2025]".
	rangeTwoMonthRe = regexp.MustCompile(
		`\b(?:from\s+)?(\d{1,2})` + ordPat + `\s+(` + monthPat + `)\s*(?:to|till|until|through|[-–])\s*(\d{1,2})` + ordPat + `\s+(` + monthPat + `)\b(?:,?\s+(\d{4}))?`)
	rangeDayFirstRe = regexp.MustCompile(
		`\b(\d{1,2})` + ordPat + `\s*(?:to|till|until|through|[-–])\s*(\d{1,2})` + ordPat + `\s+(` + monthPat + `)\b(?:,?\s+(\d{4}))?`)
	rangeMonthFirstRe = regexp.MustCompile(
		`\b(` + monthPat + `)\s+(\d{1,2})` + ordPat + `\s*(?:to|till|until|through|[-–])\s*(\d{1,2})` + ordPat + `\b(?:,?\s+(\d{4}))?`)

	// Connected-list strategy: "8th & 9th january [2026]", "january 8 and 9",
	// "1, 3 and 5 march".
	connDaysFirstRe = regexp.MustCompile(
		`\b((?:\d{1,2}` + ordPat + listSep + `)+\d{1,2}` + ordPat + `)\s+(` + monthPat + `)\b(?:,?\s+(\d{4}))?`)
	connMonthFirstRe = regexp.MustCompile(
		`\b(` + monthPat + `)\s+((?:\d{1,2}` + ordPat + listSep + `)+\d{1,2}` + ordPat + `)\b(?:,?\s+(\d{4}))?`)

	dayNumRe = regexp.MustCompile(`\d{1,2}`)

	// Explicit-single battery, applied in order with matched spans blanked
	// so a later pattern never re-reports a sub-token of an earlier match.
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})\b`)
	dayMonthRe    = regexp.MustCompile(`\b(\d{1,2})` + ordPat + `\s+(?:of\s+)?(` + monthPat + `)\b(?:,?\s+(\d{4}))?`)
	monthDayRe    = regexp.MustCompile(`\b(` + monthPat + `)\b\s+(\d{1,2})` + ordPat + `\b(?:,?\s+(\d{4}))?`)

	// Relative strategy: closed vocabulary only.
	relativeRe = regexp.MustCompile(
		`\b(?:today|tomorrow|yesterday|(?:this|next|coming)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|(?:this|next)\s+(?:weekend|week))\b`)
)

// dateResult is the immutable partial result a strategy produces; the
// reconciler merges it with the time extraction explicitly.
type dateResult struct {
	start    time.Time
	end      time.Time
	daily    bool
	allDates []time.Time
}

// dateStrategies is the fixed precedence order, most specific first. A
// relative word must never mask a more precise explicit date found
// elsewhere in the same text, and partial matches from different
// strategies are never combined.
var dateStrategies = []struct {
	name string
	try  func(text string, ref time.Time) (dateResult, bool)
}{
	{"range", tryRange},
	{"connected", tryConnectedList},
	{"explicit", tryExplicit},
	{"relative", tryRelative},
}

// extractDates runs the strategies in order and accepts the first
// non-empty result.
func extractDates(text string, ref time.Time) (dateResult, bool) {
	for _, s := range dateStrategies {
		if r, ok := s.try(text, ref); ok {
			return r, true
		}
	}
	return dateResult{}, false
}

// tryRange matches contiguous-span phrasing. A match means a repeating
// single-day event across the span, not one long event, so daily is set.
func tryRange(text string, ref time.Time) (dateResult, bool) {
	if m := rangeTwoMonthRe.FindStringSubmatch(text); m != nil {
		if r, ok := resolveRange(m[1], m[2], m[3], m[4], m[5], ref); ok {
			return r, true
		}
	}
	if m := rangeDayFirstRe.FindStringSubmatch(text); m != nil {
		if r, ok := resolveRange(m[1], m[3], m[2], m[3], m[4], ref); ok {
			return r, true
		}
	}
	if m := rangeMonthFirstRe.FindStringSubmatch(text); m != nil {
		if r, ok := resolveRange(m[2], m[1], m[3], m[1], m[4], ref); ok {
			return r, true
		}
	}
	return dateResult{}, false
}

func resolveRange(d1, m1, d2, m2, year string, ref time.Time) (dateResult, bool) {
	start, ok1 := resolveDayMonth(d1, m1, year, ref)
	end, ok2 := resolveDayMonth(d2, m2, year, ref)
	if !ok1 || !ok2 {
		return dateResult{}, false
	}
	return dateResult{start: start, end: end, daily: true}, true
}

// tryConnectedList matches comma/and/&-joined day lists sharing one
// trailing (or leading) month token. The full deduplicated, sorted set is
// kept for fan-out.
func tryConnectedList(text string, ref time.Time) (dateResult, bool) {
	var days, month, year string
	if m := connDaysFirstRe.FindStringSubmatch(text); m != nil {
		days, month, year = m[1], m[2], m[3]
	} else if m := connMonthFirstRe.FindStringSubmatch(text); m != nil {
		days, month, year = m[2], m[1], m[3]
	} else {
		return dateResult{}, false
	}

	var dates []time.Time
	for _, d := range dayNumRe.FindAllString(days, -1) {
		if dt, ok := resolveDayMonth(d, month, year, ref); ok {
			dates = append(dates, dt)
		}
	}
	dates = dedupeSorted(dates)
	if len(dates) == 0 {
		return dateResult{}, false
	}
	return dateResult{
		start:    dates[0],
		end:      dates[len(dates)-1],
		allDates: dates,
	}, true
}

// tryExplicit runs the single-date pattern battery. Discovery order is not
// calendar order, so matches are deduplicated and sorted before taking
// min/max.
func tryExplicit(text string, ref time.Time) (dateResult, bool) {
	buf := text
	var candidates []string
	for _, re := range []*regexp.Regexp{isoDateRe, numericDateRe, dayMonthRe, monthDayRe} {
		for _, loc := range re.FindAllStringIndex(buf, -1) {
			candidates = append(candidates, buf[loc[0]:loc[1]])
		}
		buf = blankMatches(buf, re)
	}

	var dates []time.Time
	for _, c := range candidates {
		if dt, ok := parseDate(c, ref); ok {
			dates = append(dates, dt)
		}
	}
	dates = dedupeSorted(dates)
	if len(dates) == 0 {
		return dateResult{}, false
	}
	return dateResult{start: dates[0], end: dates[len(dates)-1]}, true
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// tryRelative resolves the closed relative vocabulary arithmetically
// against the reference time.
func tryRelative(text string, ref time.Time) (dateResult, bool) {
	m := relativeRe.FindString(text)
	if m == "" {
		return dateResult{}, false
	}

	refDate := dateOnly(ref, ref.Location())
	var d time.Time
	switch {
	case m == "today":
		d = refDate
	case m == "tomorrow":
		d = refDate.AddDate(0, 0, 1)
	case m == "yesterday":
		d = refDate.AddDate(0, 0, -1)
	case strings.HasSuffix(m, "weekend"):
		d = upcomingSaturday(refDate)
		if strings.HasPrefix(m, "next") {
			d = d.AddDate(0, 0, 7)
		}
	case strings.HasSuffix(m, "week"):
		d = refDate
		if strings.HasPrefix(m, "next") {
			d = refDate.AddDate(0, 0, 7)
		}
	default:
		fields := strings.Fields(m)
		wd, ok := weekdayNames[fields[len(fields)-1]]
		if !ok {
			return dateResult{}, false
		}
		// Nearest future occurrence; "this friday" on a friday means the
		// one a week out, not today.
		delta := (int(wd) - int(refDate.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		d = refDate.AddDate(0, 0, delta)
	}
	return dateResult{start: d, end: d}, true
}

// upcomingSaturday returns d itself when d is a Saturday.
func upcomingSaturday(d time.Time) time.Time {
	delta := (int(time.Saturday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, delta)
}

// resolveDayMonth parses one day-plus-month candidate. Day tokens outside
// 1-31 are rejected up front, and a parse whose resolved day does not
// echo the token is dropped too (the parser reads "32 january" as a
// year, not a day).
func resolveDayMonth(day, month, year string, ref time.Time) (time.Time, bool) {
	n, err := strconv.Atoi(dayNumRe.FindString(day))
	if err != nil || n < 1 || n > 31 {
		return time.Time{}, false
	}
	dt, ok := parseDate(joinDate(day, month, year), ref)
	if !ok || dt.Day() != n {
		return time.Time{}, false
	}
	return dt, true
}

func joinDate(day, month, year string) string {
	day = dayNumRe.FindString(day)
	if year == "" {
		return day + " " + month
	}
	return day + " " + month + " " + year
}

// blankMatches replaces every match of re with spaces, preserving offsets.
func blankMatches(s string, re *regexp.Regexp) string {
	b := []byte(s)
	for _, loc := range re.FindAllIndex(b, -1) {
		for i := loc[0]; i < loc[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func dedupeSorted(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	var out []time.Time
	for _, d := range dates {
		if len(out) == 0 || !out[len(out)-1].Equal(d) {
			out = append(out, d)
		}
	}
	return out
}
