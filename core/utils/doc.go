// Package utils provides common conversion helpers for mixer-report.
// Source rows arrive as loosely typed values (database drivers, CSV text,
// spreadsheet cells); these helpers coerce them to numbers, timestamps and
// times-of-day, reporting failure with a boolean instead of an error so that
// callers can treat unparseable values as nulls.
package utils
