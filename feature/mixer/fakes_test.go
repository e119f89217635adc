package mixer

import (
	"context"
	"sync"
	"time"

	"mixer-report/core/errors"
)

// fakeSource serves fixed tables per stream.
type fakeSource struct {
	tables map[string]Table
	err    error
	calls  int
}

func (s *fakeSource) Load(_ context.Context, stream string, _ StreamSource) (Table, error) {
	s.calls++
	if s.err != nil {
		return Table{}, s.err
	}
	t := s.tables[stream]
	// Hand out copies so a cycle cannot leak mutations into the next one.
	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows[i] = cp
	}
	return Table{Columns: t.Columns, Rows: rows}, nil
}

// recordingSink keeps every delivery.
type recordingSink struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deliveries = append(s.deliveries, d)
	return nil
}

func (s *recordingSink) rows() int {
	n := 0
	for _, d := range s.deliveries {
		n += len(d.Records)
	}
	return n
}

// memCheckpoints is an in-memory append-only log.
type memCheckpoints struct {
	log     []time.Time
	readErr error
}

func (m *memCheckpoints) Latest(context.Context) (time.Time, bool, error) {
	if m.readErr != nil {
		return time.Time{}, false, m.readErr
	}
	if len(m.log) == 0 {
		return time.Time{}, false, nil
	}
	return m.log[len(m.log)-1], true, nil
}

func (m *memCheckpoints) Append(_ context.Context, ts time.Time) error {
	if n := len(m.log); n > 0 && ts.Before(m.log[n-1]) {
		return errors.Mark(errors.New("checkpoint decreased"), errors.ErrCheckpoint)
	}
	m.log = append(m.log, ts)
	return nil
}

// stubLocker grants or refuses the lease. lost makes renewal fail.
type stubLocker struct {
	grant    bool
	lost     bool
	extended int
	released int
}

func (l *stubLocker) Acquire(context.Context) (bool, error) { return l.grant, nil }
func (l *stubLocker) Extend(context.Context) (bool, error)  { l.extended++; return !l.lost, nil }
func (l *stubLocker) Release(context.Context) error        { l.released++; return nil }
