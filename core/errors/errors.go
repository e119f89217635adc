// Package errors provides error handling for mixer-report.
//
// This package re-exports github.com/cockroachdb/errors and defines the
// failure taxonomy used by the reconciliation pipeline. Components mark the
// errors they return with one of the sentinels below so the orchestration
// boundary can classify a failed cycle without string matching:
//
//	if err := source.Load(ctx); err != nil {
//	    return errors.Mark(errors.Wrap(err, "load batches"), errors.ErrSourceUnavailable)
//	}
//
//	if errors.Is(err, errors.ErrSinkWrite) {
//	    // checkpoint was not advanced
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Mark      = crdb.Mark
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Failure taxonomy of a reconciliation cycle.
var (
	// ErrSourceUnavailable means a source store or file could not be reached or is missing.
	ErrSourceUnavailable = New("source unavailable")

	// ErrSchemaMismatch means an expected column is absent from a loaded table.
	ErrSchemaMismatch = New("schema mismatch")

	// ErrParse means a timestamp, time-of-day or number could not be parsed.
	ErrParse = New("parse error")

	// ErrOrdering means a stream handed to the matcher was not sorted ascending.
	ErrOrdering = New("ordering violation")

	// ErrSinkWrite means delivery of enriched rows failed.
	ErrSinkWrite = New("sink write failed")

	// ErrCheckpoint means the checkpoint log could not be read or appended.
	ErrCheckpoint = New("checkpoint unavailable")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = New("not found")

	// ErrInvalidConfig means the loaded configuration or site profile is unusable.
	ErrInvalidConfig = New("invalid configuration")

	// ErrLeaseLost means the single-instance lease expired or was taken over mid-cycle.
	ErrLeaseLost = New("lease lost")
)

// Classify returns a short, stable kind for logging a cycle failure.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case Is(err, ErrParse):
		return "parse"
	case Is(err, ErrOrdering):
		return "ordering"
	case Is(err, ErrSinkWrite):
		return "sink_write"
	case Is(err, ErrCheckpoint):
		return "checkpoint"
	case Is(err, ErrInvalidConfig):
		return "invalid_config"
	case Is(err, ErrLeaseLost):
		return "lease_lost"
	default:
		return "unknown"
	}
}
