package mixer

import (
	"context"
	"time"

	"mixer-report/core/errors"

	"go.uber.org/zap"
)

// Record is one delivered report row.
type Record struct {
	// Timestamp is the canonical timestamp compared with the checkpoint.
	Timestamp time.Time
	// Values holds the delivered columns under their output names.
	Values map[string]any
}

// Delivery is the set of rows handed to sinks in one cycle, ordered by timestamp.
type Delivery struct {
	Columns []string
	Records []Record
}

// First returns the earliest timestamp of the delivery.
func (d Delivery) First() time.Time {
	if len(d.Records) == 0 {
		return time.Time{}
	}
	return d.Records[0].Timestamp
}

// Last returns the latest timestamp of the delivery.
func (d Delivery) Last() time.Time {
	var last time.Time
	for _, r := range d.Records {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last
}

// Sink receives delivered rows.
type Sink interface {
	Name() string
	Write(ctx context.Context, d Delivery) error
}

// FanoutSink writes to a primary sink and then copies the delivery to secondary sinks.
//
// Only the primary decides whether the delivery succeeded. A failing secondary
// is logged and skipped: retrying the cycle would append the same rows to the
// primary again.
type FanoutSink struct {
	primary     Sink
	secondaries []Sink
	logger      *zap.Logger
}

// NewFanoutSink creates a fan-out over primary and secondaries.
func NewFanoutSink(primary Sink, logger *zap.Logger, secondaries ...Sink) *FanoutSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanoutSink{primary: primary, secondaries: secondaries, logger: logger}
}

func (f *FanoutSink) Name() string {
	return f.primary.Name()
}

func (f *FanoutSink) Write(ctx context.Context, d Delivery) error {
	if err := f.primary.Write(ctx, d); err != nil {
		return errors.Mark(errors.Wrapf(err, "write %s", f.primary.Name()), errors.ErrSinkWrite)
	}
	for _, s := range f.secondaries {
		if err := s.Write(ctx, d); err != nil {
			f.logger.Warn("Secondary sink failed",
				zap.String("sink", s.Name()),
				zap.Int("rows", len(d.Records)),
				zap.Error(err))
		}
	}
	return nil
}
