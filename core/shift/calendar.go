package shift

import (
	"fmt"
	"sort"
	"time"

	"mixer-report/core/errors"
	"mixer-report/core/utils"
)

const day = 24 * time.Hour

// Shift is a named time-of-day band starting at Start (offset from midnight).
type Shift struct {
	Label string
	Start time.Duration
}

// Calendar resolves shift labels and foundry days from raw timestamps.
// It is immutable once built and safe for concurrent use.
type Calendar struct {
	// shifts in configured order; the first entry is the first shift of the foundry day.
	shifts []Shift
	// byStart holds the same shifts ordered by start time for label lookup.
	byStart []Shift
}

// NewCalendar builds a calendar from shifts in configured order.
// At least one shift is required, labels must be unique and starts must lie within a day.
func NewCalendar(shifts []Shift) (*Calendar, error) {
	if len(shifts) == 0 {
		return nil, errors.Mark(errors.New("at least one shift is required"), errors.ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(shifts))
	for _, s := range shifts {
		if s.Label == "" {
			return nil, errors.Mark(errors.New("shift label must not be empty"), errors.ErrInvalidConfig)
		}
		if _, dup := seen[s.Label]; dup {
			return nil, errors.Mark(errors.Newf("duplicate shift label %q", s.Label), errors.ErrInvalidConfig)
		}
		if s.Start < 0 || s.Start >= day {
			return nil, errors.Mark(errors.Newf("shift %q starts outside the day: %s", s.Label, s.Start), errors.ErrInvalidConfig)
		}
		seen[s.Label] = struct{}{}
	}

	ordered := append([]Shift(nil), shifts...)
	byStart := append([]Shift(nil), shifts...)
	sort.SliceStable(byStart, func(i, j int) bool { return byStart[i].Start < byStart[j].Start })

	return &Calendar{shifts: ordered, byStart: byStart}, nil
}

// ParseShift builds a Shift from a label and an "HH:MM[:SS]" start.
func ParseShift(label, start string) (Shift, error) {
	d, ok := utils.ParseClock(start)
	if !ok {
		return Shift{}, errors.Mark(errors.Newf("shift %q: malformed start time %q", label, start), errors.ErrParse)
	}
	return Shift{Label: label, Start: d}, nil
}

// Shifts returns the configured shifts in their configured order.
func (c *Calendar) Shifts() []Shift {
	return append([]Shift(nil), c.shifts...)
}

// FirstStart returns the start of the first configured shift: the foundry day boundary.
func (c *Calendar) FirstStart() time.Duration {
	return c.shifts[0].Start
}

// CanonicalDate returns the foundry day of ts: the previous calendar date when
// ts falls before the first shift start, otherwise the calendar date of ts.
func (c *Calendar) CanonicalDate(ts time.Time) time.Time {
	return CanonicalDate(ts, c.FirstStart())
}

// CanonicalDate returns midnight of the foundry day of ts given the first shift start.
func CanonicalDate(ts time.Time, firstShiftStart time.Duration) time.Time {
	d := utils.Midnight(ts)
	if utils.ClockOf(ts) < firstShiftStart {
		return d.AddDate(0, 0, -1)
	}
	return d
}

// FoundryAdjust moves ts back one calendar day when its time-of-day is before
// the first shift start, keeping the clock time. Events after local midnight
// but before the first shift then sort with the production day they belong to.
func (c *Calendar) FoundryAdjust(ts time.Time) time.Time {
	if utils.ClockOf(ts) < c.FirstStart() {
		return ts.AddDate(0, 0, -1)
	}
	return ts
}

// Label returns the shift whose start is the latest one not after the time-of-day
// of ts. Times earlier than every start wrap around midnight to the shift that
// starts last in the day (the overnight shift).
func (c *Calendar) Label(ts time.Time) string {
	clock := utils.ClockOf(ts)
	idx := sort.Search(len(c.byStart), func(i int) bool { return c.byStart[i].Start > clock })
	if idx == 0 {
		return c.byStart[len(c.byStart)-1].Label
	}
	return c.byStart[idx-1].Label
}

// String renders the calendar for logs.
func (c *Calendar) String() string {
	out := ""
	for i, s := range c.shifts {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%s@%s", s.Label, formatClock(s.Start))
	}
	return out
}

func formatClock(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
