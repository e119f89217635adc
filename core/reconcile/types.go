package reconcile

import (
	"sort"
	"time"
)

// Row is one source record positioned on the timeline.
// Values holds the record's columns keyed by column name; a nil value is a null.
type Row struct {
	// Time is the event timestamp used for ordering and matching.
	Time time.Time

	// Values contains the record's columns.
	Values map[string]any
}

// NewRow creates a row with an empty value map.
func NewRow(ts time.Time) Row {
	return Row{Time: ts, Values: make(map[string]any)}
}

// Get returns the value of a column and whether the column is present.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Clone returns a copy of the row whose value map can be modified independently.
func (r Row) Clone() Row {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{Time: r.Time, Values: values}
}

// SortRows orders rows ascending by time, keeping the input order for equal timestamps.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
}

// HasColumn reports whether any row carries the column.
func HasColumn(rows []Row, column string) bool {
	for _, r := range rows {
		if _, ok := r.Values[column]; ok {
			return true
		}
	}
	return false
}

// Direction selects which secondary row a primary row is paired with.
type Direction string

const (
	// DirectionNearest pairs with the closest secondary timestamp; ties go to the earlier row.
	DirectionNearest Direction = "nearest"
	// DirectionForward pairs with the closest secondary timestamp at or after the primary.
	DirectionForward Direction = "forward"
	// DirectionBackward pairs with the closest secondary timestamp at or before the primary.
	DirectionBackward Direction = "backward"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionNearest, DirectionForward, DirectionBackward:
		return true
	default:
		return false
	}
}

// ColumnPair names a (setpoint, actual) measurement pair.
type ColumnPair struct {
	// Setpoint is the commanded value column.
	Setpoint string `yaml:"setpoint" json:"setpoint"`
	// Actual is the measured value column.
	Actual string `yaml:"actual" json:"actual"`
}

// Window is an interval during which one component was produced.
type Window struct {
	// Start is the beginning of the production run.
	Start time.Time
	// End is the end of the run. An End before Start crosses midnight.
	End time.Time
	// ComponentID identifies the produced component.
	ComponentID string
}

// Effective returns the window with a midnight-crossing end moved to the next day.
func (w Window) Effective() Window {
	if w.End.Before(w.Start) {
		w.End = w.End.Add(24 * time.Hour)
	}
	return w
}

// Span returns the duration of the effective window.
func (w Window) Span() time.Duration {
	e := w.Effective()
	return e.End.Sub(e.Start)
}
