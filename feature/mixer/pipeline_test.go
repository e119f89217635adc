package mixer

import (
	"context"
	"testing"
	"time"

	"mixer-report/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func at(day, hh, mm, ss int) time.Time {
	return time.Date(2025, 3, day, hh, mm, ss, 0, time.UTC)
}

// scenarioTables is one batch, one dosing sample and one production window.
func scenarioTables() map[string]Table {
	return map[string]Table{
		StreamBatch: {
			Columns: []string{"date", "time", "Batch_reset", "compactability"},
			Rows: []map[string]any{
				{"date": "2025-03-14", "time": "08:59:00", "Batch_reset": "A", "compactability": 38.5},
			},
		},
		StreamDosing: {
			Columns: []string{"datetime", "Coal_Dust_Set_Kgs", "Coal_Dust_Act_Kgs"},
			Rows: []map[string]any{
				{"datetime": "2025-03-14 08:40:00", "Coal_Dust_Set_Kgs": 2.0, "Coal_Dust_Act_Kgs": 1.7},
				{"datetime": "2025-03-14 09:00:10", "Coal_Dust_Set_Kgs": 2.0, "Coal_Dust_Act_Kgs": "1.9"},
			},
		},
		StreamWindows: {
			Columns: []string{"date", "start_time", "end_time", "component_id"},
			Rows: []map[string]any{
				{"date": "2025-03-14", "start_time": "08:30:00", "end_time": "09:30:00", "component_id": "COMP-7"},
			},
		},
	}
}

func newTestPipeline(t *testing.T, src Source, sink Sink, cp Checkpointer, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	return NewPipeline(mustProfile(t, testProfile), src, sink, cp, opts...)
}

// TestPipeline_EndToEnd tests delivery of the reference row and idempotence on re-run.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{tables: scenarioTables()}
	sink := &recordingSink{}
	cps := &memCheckpoints{log: []time.Time{at(14, 8, 58, 59)}}
	p := newTestPipeline(t, src, sink, cps)

	res := p.RunCycle(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, StateCheckpointing, res.FinalState)
	assert.Equal(t, 1, res.Loaded)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, at(14, 8, 59, 0), res.Checkpoint)
	assert.Equal(t, []string{"moisture"}, res.MissingColumns)

	require.Len(t, sink.deliveries, 1)
	d := sink.deliveries[0]
	assert.Equal(t, []string{"timestamp", "shift", "mixer_name", "component_id", "batch_counter",
		"Compactability", "coal_dust_kgs", "foundry_day", "moisture"}, d.Columns)

	row := d.Records[0].Values
	assert.Equal(t, at(14, 8, 59, 0), row["timestamp"])
	assert.Equal(t, "A", row["shift"])
	assert.Equal(t, "Mixer-1", row["mixer_name"])
	assert.Equal(t, "COMP-7", row["component_id"])
	assert.Equal(t, 1, row["batch_counter"])
	assert.Equal(t, 38.5, row["Compactability"])
	assert.Equal(t, 1.9, row["coal_dust_kgs"], "nearest dosing sample is 09:00:10")
	// 08:59 is after the 07:00 first shift, so the production day is the calendar day.
	assert.Equal(t, "2025-03-14", row["foundry_day"])
	assert.Nil(t, row["moisture"])
	assert.Contains(t, row, "moisture")

	assert.Equal(t, []time.Time{at(14, 8, 58, 59), at(14, 8, 59, 0)}, cps.log)

	// Same sources, checkpoint now at 08:59:00.
	again := p.RunCycle(ctx)
	require.NoError(t, again.Err)
	assert.Equal(t, StateFiltering, again.FinalState)
	assert.Equal(t, 1, again.Loaded)
	assert.Equal(t, 0, again.Delivered)
	assert.Len(t, sink.deliveries, 1, "sink untouched when nothing is new")
	assert.Len(t, cps.log, 2, "checkpoint untouched when nothing is new")
	assert.Equal(t, uint64(2), again.Cycle)
}

// TestPipeline_FirstRunDeliversEverything tests an empty checkpoint log.
func TestPipeline_FirstRunDeliversEverything(t *testing.T) {
	tables := scenarioTables()
	batch := tables[StreamBatch]
	batch.Rows = append(batch.Rows,
		map[string]any{"date": "2025-03-14", "time": "09:10:00", "Batch_reset": "A", "compactability": 39.0},
		map[string]any{"date": "2025-03-14", "time": "09:05:00", "Batch_reset": "B", "compactability": 40.0},
	)
	tables[StreamBatch] = batch

	sink := &recordingSink{}
	cps := &memCheckpoints{}
	p := newTestPipeline(t, &fakeSource{tables: tables}, sink, cps)

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Delivered)
	assert.Equal(t, []time.Time{at(14, 9, 10, 0)}, cps.log)

	recs := sink.deliveries[0].Records
	assert.Equal(t, at(14, 8, 59, 0), recs[0].Timestamp)
	assert.Equal(t, at(14, 9, 5, 0), recs[1].Timestamp)
	assert.Equal(t, at(14, 9, 10, 0), recs[2].Timestamp)
	assert.Equal(t, 1, recs[1].Values["batch_counter"], "group B starts at 1")
	assert.Equal(t, 2, recs[2].Values["batch_counter"], "second A batch")
	assert.Equal(t, "COMP-7", recs[2].Values["component_id"])
}

// TestPipeline_Monotonic tests that the checkpoint only grows as new rows arrive.
func TestPipeline_Monotonic(t *testing.T) {
	tables := scenarioTables()
	src := &fakeSource{tables: tables}
	cps := &memCheckpoints{}
	p := newTestPipeline(t, src, &recordingSink{}, cps)

	require.NoError(t, p.RunCycle(context.Background()).Err)

	batch := tables[StreamBatch]
	batch.Rows = append(batch.Rows, map[string]any{"date": "2025-03-14", "time": "10:15:00", "Batch_reset": "A"})
	tables[StreamBatch] = batch

	require.NoError(t, p.RunCycle(context.Background()).Err)
	require.NoError(t, p.RunCycle(context.Background()).Err)

	require.Len(t, cps.log, 2)
	assert.True(t, cps.log[1].After(cps.log[0]))
}

// TestPipeline_SinkFailure tests that a failed write leaves the checkpoint alone.
func TestPipeline_SinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("table locked")}
	cps := &memCheckpoints{log: []time.Time{at(14, 8, 0, 0)}}
	p := newTestPipeline(t, &fakeSource{tables: scenarioTables()}, sink, cps)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, errors.ErrSinkWrite))
	assert.Equal(t, StateWriting, res.FinalState)
	assert.Equal(t, 0, res.Delivered)
	assert.Len(t, cps.log, 1)

	// The next cycle recomputes and delivers the same row.
	sink.err = nil
	res = p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Delivered)
}

// TestPipeline_Failures tests that each failure class aborts the cycle with its sentinel.
func TestPipeline_Failures(t *testing.T) {
	t.Run("CheckpointRead", func(t *testing.T) {
		src := &fakeSource{tables: scenarioTables()}
		p := newTestPipeline(t, src, &recordingSink{}, &memCheckpoints{readErr: errors.New("gone")})

		res := p.RunCycle(context.Background())
		assert.True(t, errors.Is(res.Err, errors.ErrCheckpoint))
		assert.Equal(t, StateLoading, res.FinalState)
		assert.Zero(t, src.calls)
	})

	t.Run("SourceUnavailable", func(t *testing.T) {
		src := &fakeSource{err: errors.New("dial tcp: connection refused")}
		p := newTestPipeline(t, src, &recordingSink{}, &memCheckpoints{})

		res := p.RunCycle(context.Background())
		assert.True(t, errors.Is(res.Err, errors.ErrSourceUnavailable))
	})

	t.Run("MissingTimestampColumn", func(t *testing.T) {
		tables := scenarioTables()
		tables[StreamDosing] = Table{
			Columns: []string{"when", "Coal_Dust_Set_Kgs"},
			Rows:    []map[string]any{{"when": "2025-03-14 09:00:10", "Coal_Dust_Set_Kgs": 1.0}},
		}
		sink := &recordingSink{}
		p := newTestPipeline(t, &fakeSource{tables: tables}, sink, &memCheckpoints{})

		res := p.RunCycle(context.Background())
		assert.True(t, errors.Is(res.Err, errors.ErrSchemaMismatch))
		assert.Equal(t, StateNormalizing, res.FinalState)
		assert.Empty(t, sink.deliveries)
	})
}

// TestPipeline_ParseErrors tests that unparseable rows are dropped and counted.
func TestPipeline_ParseErrors(t *testing.T) {
	tables := scenarioTables()
	batch := tables[StreamBatch]
	batch.Rows = append(batch.Rows, map[string]any{"date": "not a date", "time": "09:00:00", "Batch_reset": "A"})
	tables[StreamBatch] = batch

	dosing := tables[StreamDosing]
	dosing.Rows = append(dosing.Rows, map[string]any{"datetime": "2025-03-14 09:30:00", "Coal_Dust_Set_Kgs": "n/a", "Coal_Dust_Act_Kgs": 1.0})
	tables[StreamDosing] = dosing

	p := newTestPipeline(t, &fakeSource{tables: tables}, &recordingSink{}, &memCheckpoints{})
	res := p.RunCycle(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 2, res.ParseErrors)
}

// TestPipeline_PassThrough tests a profile with neither dosing nor windows.
func TestPipeline_PassThrough(t *testing.T) {
	prof := mustProfile(t, `
mixer_name: Mixer-3
shifts:
  - {label: A, start: "07:00:00"}
  - {label: B, start: "19:00:00"}
timestamp_policy: {disabled: true}
batch: {table: mixer, datetime_column: Date_Time, order_by: ID, limit: 10000}
output_columns: [shift, component_id, mixer_name, Sand_Temp]
output_rename: {Sand_Temp: sand_temperature}
sink: {table: mixer_report}
`)
	src := &fakeSource{tables: map[string]Table{
		StreamBatch: {
			Columns: []string{"ID", "Date_Time", "Sand_Temp"},
			Rows: []map[string]any{
				{"ID": int64(2), "Date_Time": at(14, 20, 0, 0), "Sand_Temp": 41.0},
				{"ID": int64(1), "Date_Time": at(14, 3, 0, 0), "Sand_Temp": 39.5},
			},
		},
	}}
	sink := &recordingSink{}
	p := NewPipeline(prof, src, sink, &memCheckpoints{}, WithLocation(time.UTC))

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, 2, res.Delivered)

	recs := sink.deliveries[0].Records
	assert.Equal(t, at(14, 3, 0, 0), recs[0].Timestamp)
	assert.Equal(t, "B", recs[0].Values["shift"])
	assert.Nil(t, recs[0].Values["component_id"])
	assert.Equal(t, 39.5, recs[0].Values["sand_temperature"])
	assert.Equal(t, "B", recs[1].Values["shift"])
	assert.Equal(t, []string{"timestamp", "shift", "component_id", "mixer_name", "sand_temperature"}, sink.deliveries[0].Columns)
}

// TestPipeline_CalendarTimestampsStayPut tests the default policy on calendar timestamps.
func TestPipeline_CalendarTimestampsStayPut(t *testing.T) {
	prof := mustProfile(t, `
shifts:
  - {label: A, start: "07:00:00"}
  - {label: B, start: "19:00:00"}
batch: {table: b, datetime_column: dt}
output_columns: [shift]
sink: {table: r}
`)
	src := &fakeSource{tables: map[string]Table{
		StreamBatch: {Columns: []string{"dt"}, Rows: []map[string]any{
			{"dt": "2025-03-14 03:00:00"},
			{"dt": "2025-03-14 08:00:00"},
		}},
	}}
	sink := &recordingSink{}
	cps := &memCheckpoints{}
	p := NewPipeline(prof, src, sink, cps, WithLocation(time.UTC))

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, 2, res.Delivered)
	recs := sink.deliveries[0].Records
	assert.Equal(t, at(14, 3, 0, 0), recs[0].Timestamp)
	assert.Equal(t, "B", recs[0].Values["shift"])
	assert.Equal(t, at(14, 8, 0, 0), res.Checkpoint)

	// A later row on the same day is still delivered.
	batch := src.tables[StreamBatch]
	batch.Rows = append(batch.Rows, map[string]any{"dt": "2025-03-14 09:00:00"})
	src.tables[StreamBatch] = batch

	next := p.RunCycle(context.Background())
	require.NoError(t, next.Err)
	assert.Equal(t, 1, next.Delivered)
	assert.Equal(t, at(14, 9, 0, 0), next.Checkpoint)
}

// TestPipeline_OvernightShiftRollsForward tests a foundry-adjusted overnight batch and the shift policy.
func TestPipeline_OvernightShiftRollsForward(t *testing.T) {
	prof := mustProfile(t, `
shifts:
  - {label: A, start: "07:00:00"}
  - {label: B, start: "19:00:00"}
timestamp_policy: {shift: B, before: "07:00:00"}
batch: {table: b, datetime_column: dt, foundry_adjust: true}
windows: {table: w, start_column: start, end_column: end, component_column: part}
output_columns: [shift, component_id]
sink: {table: r}
`)
	src := &fakeSource{tables: map[string]Table{
		StreamBatch: {Columns: []string{"dt"}, Rows: []map[string]any{{"dt": "2025-03-15 02:00:00"}}},
		// Night run from 18:00 to 08:00, ending on the next calendar day.
		StreamWindows: {Columns: []string{"start", "end", "part"}, Rows: []map[string]any{
			{"start": "2025-03-14 18:00:00", "end": "2025-03-14 08:00:00", "part": "NIGHT-1"},
		}},
	}}
	sink := &recordingSink{}
	p := NewPipeline(prof, src, sink, &memCheckpoints{}, WithLocation(time.UTC))

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Delivered)

	rec := sink.deliveries[0].Records[0]
	assert.Equal(t, at(15, 2, 0, 0), rec.Timestamp, "calendar instant restored")
	assert.Equal(t, "B", rec.Values["shift"])
	// Foundry time 14th 02:00 precedes the run; the 14h run is retried one day later.
	assert.Equal(t, "NIGHT-1", rec.Values["component_id"])
}

// TestPipeline_LeaseHeldElsewhere tests that a refused lease skips the cycle.
func TestPipeline_LeaseHeldElsewhere(t *testing.T) {
	src := &fakeSource{tables: scenarioTables()}
	locker := &stubLocker{grant: false}
	p := newTestPipeline(t, src, &recordingSink{}, &memCheckpoints{}, WithLocker(locker))

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	assert.True(t, res.Skipped)
	assert.Zero(t, src.calls)
	assert.Zero(t, locker.released)

	locker.grant = true
	res = p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, locker.released)
}

// TestPipeline_LeaseLostBeforeWriting tests that an expired lease stops delivery.
func TestPipeline_LeaseLostBeforeWriting(t *testing.T) {
	sink := &recordingSink{}
	cps := &memCheckpoints{}
	locker := &stubLocker{grant: true, lost: true}
	p := newTestPipeline(t, &fakeSource{tables: scenarioTables()}, sink, cps, WithLocker(locker))

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, errors.ErrLeaseLost))
	assert.Equal(t, StateFiltering, res.FinalState)
	assert.Equal(t, 1, locker.extended)
	assert.Empty(t, sink.deliveries)
	assert.Empty(t, cps.log)
	assert.Equal(t, 1, locker.released)
}

// TestPipeline_Logging tests that failures are logged with their kind and cycle number.
func TestPipeline_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := &recordingSink{err: errors.New("disk full")}
	p := newTestPipeline(t, &fakeSource{tables: scenarioTables()}, sink, &memCheckpoints{}, WithLogger(zap.New(core)))

	_ = p.RunCycle(context.Background())

	entries := logs.FilterMessage("Cycle failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sink_write", fields["kind"])
	assert.Equal(t, uint64(1), fields["cycle"])
	assert.Equal(t, string(StateWriting), fields["state"])
}

// TestPipeline_Job tests the scheduler adapter.
func TestPipeline_Job(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{err: errors.New("down")}, &recordingSink{}, &memCheckpoints{})
	err := p.Job()(context.Background())
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
}
