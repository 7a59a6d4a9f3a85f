package extract

import (
	"testing"
	"time"
)

var testRef = time.Date(2025, time.August, 1, 10, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractDates_RangeDayFirst(t *testing.T) {
	r, ok := extractDates("the workshop runs 14th to 16th august 2025, see you there", testRef)
	if !ok {
		t.Fatal("expected the range strategy to match")
	}
	if !r.daily {
		t.Error("expected a range match to set daily")
	}
	if !r.start.Equal(date(2025, time.August, 14)) {
		t.Errorf("expected start 2025-08-14, got %v", r.start)
	}
	if !r.end.Equal(date(2025, time.August, 16)) {
		t.Errorf("expected end 2025-08-16, got %v", r.end)
	}
	if len(r.allDates) != 0 {
		t.Errorf("range strategy must not populate allDates, got %v", r.allDates)
	}
}

func TestExtractDates_RangeMonthFirst(t *testing.T) {
	r, ok := extractDates("registration open for august 14-16, 2025", testRef)
	if !ok {
		t.Fatal("expected the range strategy to match")
	}
	if !r.daily || !r.start.Equal(date(2025, time.August, 14)) || !r.end.Equal(date(2025, time.August, 16)) {
		t.Errorf("unexpected result: start=%v end=%v daily=%v", r.start, r.end, r.daily)
	}
}

func TestExtractDates_RangeTwoMonths(t *testing.T) {
	r, ok := extractDates("open from 30 august to 2 september 2025", testRef)
	if !ok {
		t.Fatal("expected the range strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 30)) {
		t.Errorf("expected start 2025-08-30, got %v", r.start)
	}
	if !r.end.Equal(date(2025, time.September, 2)) {
		t.Errorf("expected end 2025-09-02, got %v", r.end)
	}
}

func TestExtractDates_ConnectedList(t *testing.T) {
	ref := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	r, ok := extractDates("auditions will be held on 8th & 9th january", ref)
	if !ok {
		t.Fatal("expected the connected-list strategy to match")
	}
	if r.daily {
		t.Error("connected list must not set daily")
	}
	want := []time.Time{date(2025, time.January, 8), date(2025, time.January, 9)}
	if len(r.allDates) != len(want) {
		t.Fatalf("expected %d dates, got %d (%v)", len(want), len(r.allDates), r.allDates)
	}
	for i, w := range want {
		if !r.allDates[i].Equal(w) {
			t.Errorf("allDates[%d]: expected %v, got %v", i, w, r.allDates[i])
		}
	}
	if !r.start.Equal(want[0]) || !r.end.Equal(want[1]) {
		t.Errorf("expected start/end = min/max of the set, got %v / %v", r.start, r.end)
	}
}

func TestExtractDates_ConnectedListMonthFirst(t *testing.T) {
	ref := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)
	r, ok := extractDates("rehearsals on march 1, 3 and 5", ref)
	if !ok {
		t.Fatal("expected the connected-list strategy to match")
	}
	if len(r.allDates) != 3 {
		t.Fatalf("expected 3 dates, got %v", r.allDates)
	}
	if !r.allDates[1].Equal(date(2025, time.March, 3)) {
		t.Errorf("expected middle date 2025-03-03, got %v", r.allDates[1])
	}
}

func TestExtractDates_ConnectedListDeduplicates(t *testing.T) {
	ref := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	r, ok := extractDates("sessions on 9, 8 and 9 january", ref)
	if !ok {
		t.Fatal("expected the connected-list strategy to match")
	}
	if len(r.allDates) != 2 {
		t.Fatalf("expected duplicates removed and set sorted, got %v", r.allDates)
	}
	if !r.allDates[0].Equal(date(2025, time.January, 8)) {
		t.Errorf("expected first date 2025-01-08, got %v", r.allDates[0])
	}
}

func TestExtractDates_ExplicitISO(t *testing.T) {
	r, ok := extractDates("submission deadline is 2025-08-14 at noon", testRef)
	if !ok {
		t.Fatal("expected the explicit strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 14)) || !r.end.Equal(r.start) {
		t.Errorf("expected start=end=2025-08-14, got %v / %v", r.start, r.end)
	}
	if r.daily {
		t.Error("explicit single date must not set daily")
	}
}

func TestExtractDates_ExplicitDayMonth(t *testing.T) {
	r, ok := extractDates("the talk is on 14 august 2025 in the main hall", testRef)
	if !ok {
		t.Fatal("expected the explicit strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 14)) {
		t.Errorf("expected 2025-08-14, got %v", r.start)
	}
}

func TestExtractDates_ExplicitMultipleSorted(t *testing.T) {
	// Discovery order differs from calendar order; min/max must still be
	// taken after sorting.
	r, ok := extractDates("closes 20 august 2025, opens 5 august 2025", testRef)
	if !ok {
		t.Fatal("expected the explicit strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 5)) {
		t.Errorf("expected start 2025-08-05, got %v", r.start)
	}
	if !r.end.Equal(date(2025, time.August, 20)) {
		t.Errorf("expected end 2025-08-20, got %v", r.end)
	}
}

func TestExtractDates_RelativeFixedWords(t *testing.T) {
	cases := []struct {
		text string
		want time.Time
	}{
		{"see you tomorrow!", date(2025, time.August, 2)},
		{"the demo is today", date(2025, time.August, 1)},
		{"we met yesterday", date(2025, time.July, 31)},
		{"planned for next week", date(2025, time.August, 8)},
	}
	for _, c := range cases {
		r, ok := extractDates(c.text, testRef)
		if !ok {
			t.Errorf("%q: expected the relative strategy to match", c.text)
			continue
		}
		if !r.start.Equal(c.want) || !r.end.Equal(c.want) {
			t.Errorf("%q: expected %v, got start=%v end=%v", c.text, c.want, r.start, r.end)
		}
	}
}

func TestExtractDates_RelativeWeekend(t *testing.T) {
	// 2025-08-01 is a Friday, so the coming Saturday is the 2nd.
	r, ok := extractDates("hackathon this weekend", testRef)
	if !ok {
		t.Fatal("expected the relative strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 2)) {
		t.Errorf("expected 2025-08-02, got %v", r.start)
	}

	r, ok = extractDates("hackathon next weekend", testRef)
	if !ok {
		t.Fatal("expected the relative strategy to match")
	}
	if !r.start.Equal(date(2025, time.August, 9)) {
		t.Errorf("expected 2025-08-09, got %v", r.start)
	}
}

func TestExtractDates_RelativeWeekday(t *testing.T) {
	// The reference 2025-08-01 is a friday.
	cases := []struct {
		text string
		want time.Time
	}{
		{"sync up next monday", date(2025, time.August, 4)},
		{"games night coming saturday", date(2025, time.August, 2)},
		{"review due this tuesday", date(2025, time.August, 5)},
		{"submit by this friday", date(2025, time.August, 8)},
	}
	for _, c := range cases {
		r, ok := extractDates(c.text, testRef)
		if !ok {
			t.Errorf("%q: expected the relative strategy to match", c.text)
			continue
		}
		if !r.start.Equal(c.want) || !r.end.Equal(c.want) {
			t.Errorf("%q: expected %v, got start=%v end=%v", c.text, c.want, r.start, r.end)
		}
	}
}

func TestExtractDates_PriorityExplicitOverRelative(t *testing.T) {
	// A relative word must not mask a precise explicit date elsewhere in
	// the same text.
	r, ok := extractDates("reply by tomorrow: the event is on 20 august 2025", testRef)
	if !ok {
		t.Fatal("expected a date match")
	}
	if !r.start.Equal(date(2025, time.August, 20)) {
		t.Errorf("expected the explicit date to win, got %v", r.start)
	}
}

func TestExtractDates_NoSignal(t *testing.T) {
	if _, ok := extractDates("just wanted to say hello", testRef); ok {
		t.Error("expected no date signal")
	}
}

func TestExtractDates_MalformedCandidateDropped(t *testing.T) {
	// 32 january cannot resolve; the surviving candidate is kept.
	ref := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	r, ok := extractDates("on 32, 8 january", ref)
	if !ok {
		t.Fatal("expected the surviving candidate to produce a result")
	}
	if len(r.allDates) != 1 || !r.allDates[0].Equal(date(2025, time.January, 8)) {
		t.Errorf("expected only 2025-01-08 to survive, got %v", r.allDates)
	}
}

func TestExtractDates_ImpossibleDayForMonthDropped(t *testing.T) {
	// 31 february parses to some other day; the mismatch drops it.
	ref := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	r, ok := extractDates("on 31, 8 february", ref)
	if !ok {
		t.Fatal("expected the surviving candidate to produce a result")
	}
	if len(r.allDates) != 1 || !r.allDates[0].Equal(date(2025, time.February, 8)) {
		t.Errorf("expected only 2025-02-08 to survive, got %v", r.allDates)
	}
}

func TestExtractDates_MalformedISODropped(t *testing.T) {
	if _, ok := extractDates("due 2025-02-30, see attachment", testRef); ok {
		t.Error("expected an impossible ISO date to produce no signal")
	}
}
