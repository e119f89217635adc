package shift

import (
	"time"

	"mixer-report/core/utils"
)

// TimestampPolicy maps a row on the foundry timeline back to the canonical
// timestamp written to the report. Deployments disagree on the rule, so it is
// configured per site rather than inferred.
type TimestampPolicy struct {
	// Shift restricts the rollover to rows labelled with this shift.
	// Empty applies the rollover to every shift.
	Shift string
	// Before is the time-of-day cutoff; rows strictly earlier roll forward one day.
	// Zero means the first shift start of the calendar.
	Before time.Duration
	// Disabled leaves timestamps untouched.
	Disabled bool
}

// Canonical returns the canonical timestamp for a row at ts with shift label.
//
// Rows on the foundry timeline that occur after midnight but before the cutoff
// carry the previous production date; rolling them forward one day restores the
// calendar instant. Restricting by shift reproduces sites that only roll the
// overnight shift (for example "B" on two-shift lines or "C" on three-shift lines).
func (p TimestampPolicy) Canonical(ts time.Time, label string, cal *Calendar) time.Time {
	if p.Disabled {
		return ts
	}
	if p.Shift != "" && p.Shift != label {
		return ts
	}
	cutoff := p.Before
	if cutoff == 0 && cal != nil {
		cutoff = cal.FirstStart()
	}
	if utils.ClockOf(ts) < cutoff {
		return ts.AddDate(0, 0, 1)
	}
	return ts
}
