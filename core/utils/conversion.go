package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when a timestamp arrives as text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
}

// clockLayouts are tried in order when a time-of-day arrives as text.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"15:04:05.999999999",
	"3:04:05 PM",
	"3:04 PM",
}

// ToFloat converts various types to float64 using explicit type switching.
// The second return value is false when the value is missing or not numeric;
// callers treat that as a null rather than an error.
func ToFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case float32:
		if math.IsNaN(float64(v)) {
			return 0, false
		}
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint8:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return parseFloat(fmt.Sprintf("%v", v))
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ToString converts various types to string.
// Nil becomes the empty string; timestamps use the report layout.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return FormatTimestamp(v)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatTimestamp renders a timestamp the way report consumers expect it.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// ToTime converts a database or spreadsheet value to a timestamp in loc.
// Text is tried against the known layouts; time.Time values are returned as-is.
func ToTime(val any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch v := val.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case []byte:
		return parseTimestamp(string(v), loc)
	case string:
		return parseTimestamp(v, loc)
	default:
		return parseTimestamp(fmt.Sprintf("%v", v), loc)
	}
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToClock converts a time-of-day value to its offset from midnight.
// MySQL TIME columns arrive as text ("08:59:00"), spreadsheet cells may arrive
// as full timestamps, and durations are passed through.
func ToClock(val any) (time.Duration, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case time.Duration:
		return v, true
	case time.Time:
		return ClockOf(v), true
	case []byte:
		return ParseClock(string(v))
	case string:
		return ParseClock(v)
	default:
		return ParseClock(fmt.Sprintf("%v", v))
	}
}

// ParseClock parses "HH:MM[:SS]" text into an offset from midnight.
// Values of 24h or more are accepted because MySQL TIME may exceed a day.
func ParseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), true
		}
	}
	// Fall back to "H:MM:SS" with an hour component beyond 23.
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || n < 0 {
			return 0, false
		}
		total += time.Duration(n * float64(units[i]))
	}
	return total, true
}

// ClockOf returns the time-of-day of t as an offset from midnight.
func ClockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
