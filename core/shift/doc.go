// Package shift implements the production shift calendar.
//
// A foundry day starts at the first configured shift, not at midnight. Events
// logged after local midnight but before that boundary belong to the previous
// production day. The Calendar answers three questions about a timestamp:
//
//   - CanonicalDate: which production day it belongs to.
//   - FoundryAdjust: the same instant re-dated onto the production day.
//   - Label: which shift was running (wrapping around midnight).
//
// TimestampPolicy is the inverse used for report output: it restores the
// calendar instant for rows that were carried on the foundry timeline.
//
// # Usage
//
//	a, _ := shift.ParseShift("A", "07:00:00")
//	b, _ := shift.ParseShift("B", "19:00:00")
//	cal, err := shift.NewCalendar([]shift.Shift{a, b})
//	label := cal.Label(ts) // "B" for 02:00
package shift
