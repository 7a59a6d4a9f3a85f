package extract

import "time"

// overnightToleranceMinutes bounds the reversed-time swap: when the end
// time numerically precedes the start time, the pair is swapped only if
// the forward wrap into the next day is under this. A wider wrap is a
// deliberate overnight span and is left alone.
const overnightToleranceMinutes = 720

const minutesPerDay = 24 * 60

// Reconcile repairs a partial or contradictory extraction in place. The
// reference time supplies the fallback start date (the message's own date,
// not "now"). When defaultDuration is enabled, a lone start time before
// 13:00 gets a one-hour duration; afternoon and evening single times are
// assumed punctual. All repairs are unconditional given their
// preconditions; there is no failure mode.
func Reconcile(x *Extraction, ref time.Time, defaultDuration bool) {
	switch {
	case x.StartDate != nil && x.EndDate == nil:
		end := *x.StartDate
		x.EndDate = &end
	case x.EndDate != nil && x.StartDate == nil:
		start := dateOnly(ref, ref.Location())
		x.StartDate = &start
	case x.StartDate == nil && x.EndDate == nil && x.HasTimes():
		// A clock time with no date anchors to the message's own date.
		start := dateOnly(ref, ref.Location())
		end := start
		x.StartDate, x.EndDate = &start, &end
	}

	if x.StartDate != nil && x.EndDate != nil && x.StartDate.After(*x.EndDate) {
		x.StartDate, x.EndDate = x.EndDate, x.StartDate
	}

	if defaultDuration && x.StartTime != nil && x.EndTime == nil && x.StartTime.Hour < 13 {
		end := x.StartTime.AddHours(1)
		x.EndTime = &end
	}

	if x.StartTime != nil && x.EndTime != nil && x.EndTime.Minutes() < x.StartTime.Minutes() {
		wrap := (x.EndTime.Minutes() - x.StartTime.Minutes() + minutesPerDay) % minutesPerDay
		if wrap < overnightToleranceMinutes {
			x.StartTime, x.EndTime = x.EndTime, x.StartTime
		}
	}

	// Degenerate zero-duration event rather than an open-ended one.
	if x.StartTime != nil && x.EndTime == nil {
		end := *x.StartTime
		x.EndTime = &end
	}
}
