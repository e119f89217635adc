package mixer

import (
	"time"
)

// State is a step of one pipeline cycle.
type State string

const (
	StateIdle          State = "IDLE"
	StateLoading       State = "LOADING"
	StateNormalizing   State = "NORMALIZING"
	StateMatching      State = "MATCHING"
	StateEnriching     State = "ENRICHING"
	StateFiltering     State = "FILTERING"
	StateWriting       State = "WRITING"
	StateCheckpointing State = "CHECKPOINTING"
)

// CycleResult summarises one cycle.
type CycleResult struct {
	// Cycle is the 1-based cycle number of this pipeline.
	Cycle uint64
	// FinalState is the last state entered before returning to IDLE.
	FinalState State
	// Skipped is set when another instance held the lease.
	Skipped bool
	// Loaded counts enriched rows before the checkpoint filter.
	Loaded int
	// Delivered counts rows written to the sink.
	Delivered int
	// Checkpoint is the checkpoint after the cycle; zero when none exists.
	Checkpoint time.Time
	// ParseErrors counts values dropped or nulled because they could not be parsed.
	ParseErrors int
	// MissingColumns lists selected columns absent from the enriched rows.
	MissingColumns []string
	// Duration is the wall time of the cycle.
	Duration time.Duration
	// Err is the error that ended the cycle, if any.
	Err error
}
