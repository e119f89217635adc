package mixer

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"mixer-report/core/errors"
	"mixer-report/core/lock"
	"mixer-report/core/logger"
	"mixer-report/core/reconcile"
	"mixer-report/core/utils"

	"go.uber.org/zap"
)

// Checkpointer is the checkpoint log used by the pipeline.
type Checkpointer interface {
	Latest(ctx context.Context) (time.Time, bool, error)
	Append(ctx context.Context, ts time.Time) error
}

// Pipeline reconciles the raw streams of one site into report rows.
type Pipeline struct {
	profile     *Profile
	source      Source
	sink        Sink
	checkpoints Checkpointer
	locker      lock.Locker
	location    *time.Location
	logger      *zap.Logger
	cycles      atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocker guards every cycle with a lease.
func WithLocker(l lock.Locker) Option {
	return func(p *Pipeline) { p.locker = l }
}

// WithLocation sets the zone of timestamps parsed from text. The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.location = loc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires a pipeline for profile.
func NewPipeline(profile *Profile, source Source, sink Sink, checkpoints Checkpointer, opts ...Option) *Pipeline {
	p := &Pipeline{
		profile:     profile,
		source:      source,
		sink:        sink,
		checkpoints: checkpoints,
		locker:      lock.Noop{},
		location:    time.Local,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// cycle holds everything derived during one run; it is dropped when the run ends.
type cycle struct {
	log         *zap.Logger
	result      *CycleResult
	checkpoint  time.Time
	hasCheck    bool
	tables      map[string]Table
	batches     []reconcile.Row
	dosing      []reconcile.Row
	windows     []reconcile.Window
	joined      []reconcile.Row
	enriched    []Record
	delivery    Delivery
	parseErrors int
}

// RunCycle executes one full cycle. It never panics on bad data; every failure
// is reported through CycleResult.Err and leaves the checkpoint untouched.
func (p *Pipeline) RunCycle(ctx context.Context) CycleResult {
	started := time.Now()
	res := CycleResult{Cycle: p.cycles.Add(1), FinalState: StateIdle}
	c := &cycle{log: logger.WithCycle(p.logger, res.Cycle), result: &res}

	err := p.run(ctx, c)
	res.ParseErrors = c.parseErrors
	res.Duration = time.Since(started)
	if err != nil {
		res.Err = err
		c.log.Error("Cycle failed",
			zap.String("state", string(res.FinalState)),
			zap.String("kind", errors.Classify(err)),
			zap.Error(err))
	} else {
		c.log.Info("Cycle finished",
			zap.String("state", string(res.FinalState)),
			zap.Bool("skipped", res.Skipped),
			zap.Int("loaded", res.Loaded),
			zap.Int("delivered", res.Delivered),
			zap.Int("parse_errors", res.ParseErrors),
			zap.Duration("duration", res.Duration))
	}
	return res
}

func (p *Pipeline) run(ctx context.Context, c *cycle) error {
	held, err := p.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	if !held {
		c.result.Skipped = true
		c.log.Info("Lease held by another instance, skipping cycle")
		return nil
	}
	defer func() {
		if err := p.locker.Release(ctx); err != nil {
			c.log.Warn("Failed to release lease", zap.Error(err))
		}
	}()

	steps := []struct {
		state State
		fn    func(context.Context, *cycle) error
	}{
		{StateLoading, p.load},
		{StateNormalizing, p.normalize},
		{StateMatching, p.match},
		{StateEnriching, p.enrich},
		{StateFiltering, p.filter},
	}
	for _, step := range steps {
		p.enter(c, step.state)
		if err := step.fn(ctx, c); err != nil {
			return err
		}
	}

	if len(c.delivery.Records) == 0 {
		c.log.Debug("No new rows to deliver")
		return nil
	}

	// Renew the lease so a slow cycle cannot write after another instance took over.
	held, err = p.locker.Extend(ctx)
	if err != nil {
		return err
	}
	if !held {
		return errors.Mark(errors.New("lease expired before writing"), errors.ErrLeaseLost)
	}

	p.enter(c, StateWriting)
	if err := p.sink.Write(ctx, c.delivery); err != nil {
		return errors.Mark(err, errors.ErrSinkWrite)
	}
	c.result.Delivered = len(c.delivery.Records)

	p.enter(c, StateCheckpointing)
	last := c.delivery.Last()
	if err := p.checkpoints.Append(ctx, last); err != nil {
		return errors.Mark(err, errors.ErrCheckpoint)
	}
	c.result.Checkpoint = last
	return nil
}

func (p *Pipeline) enter(c *cycle, s State) {
	c.result.FinalState = s
	c.log.Debug("Cycle state", zap.String("state", string(s)))
}

// load reads the checkpoint and the raw tables.
func (p *Pipeline) load(ctx context.Context, c *cycle) error {
	last, ok, err := p.checkpoints.Latest(ctx)
	if err != nil {
		return errors.Mark(err, errors.ErrCheckpoint)
	}
	c.checkpoint, c.hasCheck = last, ok
	if ok {
		c.result.Checkpoint = last
	}

	c.tables = make(map[string]Table)
	for name, src := range p.profile.Streams() {
		table, err := p.source.Load(ctx, name, src)
		if err != nil {
			return errors.Mark(err, errors.ErrSourceUnavailable)
		}
		c.log.Debug("Stream loaded", zap.String("stream", name), zap.Int("rows", len(table.Rows)))
		c.tables[name] = table
	}
	return nil
}

// normalize turns raw tables into time-ordered rows and windows.
func (p *Pipeline) normalize(_ context.Context, c *cycle) error {
	cal := p.profile.Calendar()

	batches, err := p.batchRows(c)
	if err != nil {
		return err
	}
	if p.profile.Batch.FoundryAdjust {
		for i := range batches {
			batches[i].Time = cal.FoundryAdjust(batches[i].Time)
		}
	}
	reconcile.SortRows(batches)
	c.batches = batches

	if d := p.profile.Dosing; d != nil {
		dosing, err := p.timedRows(c, StreamDosing, d.DatetimeColumn)
		if err != nil {
			return err
		}
		if d.FoundryAdjust {
			for i := range dosing {
				dosing[i].Time = cal.FoundryAdjust(dosing[i].Time)
			}
		}
		reconcile.SortRows(dosing)

		stats := reconcile.ReconcileActuals(dosing, d.Pairs)
		c.parseErrors += stats.Coerced
		if stats.Faulted+stats.Defaulted > 0 {
			c.log.Debug("Dosing actuals repaired",
				zap.Int("faulted", stats.Faulted),
				zap.Int("filled", stats.Filled),
				zap.Int("defaulted", stats.Defaulted))
		}
		c.dosing = renameRows(dosing, d.Rename)
	}

	if p.profile.Windows != nil {
		windows, err := p.windowList(c)
		if err != nil {
			return err
		}
		c.windows = windows
	}
	return nil
}

// match numbers batches and attaches the nearest dosing sample to each.
func (p *Pipeline) match(_ context.Context, c *cycle) error {
	if key := p.profile.Batch.GroupKey; key != "" {
		if !c.tables[StreamBatch].HasColumn(key) && len(c.batches) > 0 {
			c.log.Warn("Batch group key column missing, numbering all batches as one group",
				zap.String("column", key),
				zap.String("kind", errors.Classify(errors.ErrSchemaMismatch)))
		}
		reconcile.AssignSequence(c.batches, key, p.profile.Columns.Sequence)
	}

	if p.profile.Dosing == nil {
		c.joined = c.batches
		return nil
	}
	joined, err := reconcile.Join(c.batches, c.dosing, p.profile.MatchDirection)
	if err != nil {
		return err
	}
	c.joined = joined
	return nil
}

// enrich adds component, shift, mixer and canonical timestamp, then selects output columns.
func (p *Pipeline) enrich(_ context.Context, c *cycle) error {
	prof := p.profile
	cal := prof.Calendar()
	policy := prof.TimestampPolicy()

	var resolver *reconcile.WindowResolver
	if prof.Windows != nil {
		resolver = reconcile.NewWindowResolver(c.windows, reconcile.WindowOptions{InclusiveEnd: prof.Windows.InclusiveEnd})
	}

	selected := prof.SelectedColumns()
	missing := make(map[string]bool)
	records := make([]Record, 0, len(c.joined))

	for _, row := range c.joined {
		values := row.Values
		if resolver != nil {
			if id, ok := resolver.Resolve(row.Time); ok {
				values[prof.Columns.Component] = id
			} else {
				values[prof.Columns.Component] = nil
			}
		} else {
			values[prof.Columns.Component] = nil
		}

		label := cal.Label(row.Time)
		values[prof.Columns.Shift] = label
		values[prof.Columns.Mixer] = prof.MixerName
		if prof.Columns.FoundryDay != "" {
			values[prof.Columns.FoundryDay] = cal.CanonicalDate(row.Time).Format("2006-01-02")
		}
		canonical := policy.Canonical(row.Time, label, cal)
		values[prof.Columns.Timestamp] = canonical

		out := make(map[string]any, len(selected))
		for _, col := range selected {
			v, ok := values[col]
			if !ok {
				missing[col] = true
			}
			out[prof.OutputName(col)] = v
		}
		records = append(records, Record{Timestamp: canonical, Values: out})
	}

	if len(missing) > 0 {
		cols := make([]string, 0, len(missing))
		for col := range missing {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		c.result.MissingColumns = cols
		c.log.Warn("Selected columns missing, delivering nulls",
			zap.Strings("columns", cols),
			zap.String("kind", errors.Classify(errors.ErrSchemaMismatch)))
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	c.enriched = records
	c.result.Loaded = len(records)
	return nil
}

// filter keeps rows strictly newer than the checkpoint.
func (p *Pipeline) filter(_ context.Context, c *cycle) error {
	columns := make([]string, 0, len(p.profile.SelectedColumns()))
	for _, col := range p.profile.SelectedColumns() {
		columns = append(columns, p.profile.OutputName(col))
	}

	fresh := c.enriched
	if c.hasCheck {
		fresh = fresh[:0:0]
		for _, r := range c.enriched {
			if r.Timestamp.After(c.checkpoint) {
				fresh = append(fresh, r)
			}
		}
	}
	c.delivery = Delivery{Columns: columns, Records: fresh}
	return nil
}

// batchRows builds batch events from a datetime column or a date and a time column.
func (p *Pipeline) batchRows(c *cycle) ([]reconcile.Row, error) {
	b := p.profile.Batch
	if b.DatetimeColumn != "" {
		return p.timedRows(c, StreamBatch, b.DatetimeColumn)
	}

	table := c.tables[StreamBatch]
	if err := requireColumns(table, StreamBatch, b.DateColumn, b.TimeColumn); err != nil {
		return nil, err
	}

	rows := make([]reconcile.Row, 0, len(table.Rows))
	for _, raw := range table.Rows {
		day, okDay := utils.ToTime(raw[b.DateColumn], p.location)
		clock, okClock := utils.ToClock(raw[b.TimeColumn])
		if !okDay || !okClock {
			c.parseErrors++
			continue
		}
		rows = append(rows, reconcile.Row{Time: utils.Midnight(day).Add(clock), Values: raw})
	}
	return rows, nil
}

// timedRows builds rows keyed by a single timestamp column.
func (p *Pipeline) timedRows(c *cycle, stream, column string) ([]reconcile.Row, error) {
	table := c.tables[stream]
	if err := requireColumns(table, stream, column); err != nil {
		return nil, err
	}

	rows := make([]reconcile.Row, 0, len(table.Rows))
	for _, raw := range table.Rows {
		ts, ok := utils.ToTime(raw[column], p.location)
		if !ok {
			c.parseErrors++
			continue
		}
		rows = append(rows, reconcile.Row{Time: ts, Values: raw})
	}
	return rows, nil
}

// windowList builds production windows; a date column turns start and end into times of day.
func (p *Pipeline) windowList(c *cycle) ([]reconcile.Window, error) {
	w := p.profile.Windows
	table := c.tables[StreamWindows]
	cols := []string{w.StartColumn, w.EndColumn, w.ComponentColumn}
	if w.DateColumn != "" {
		cols = append(cols, w.DateColumn)
	}
	if err := requireColumns(table, StreamWindows, cols...); err != nil {
		return nil, err
	}

	windows := make([]reconcile.Window, 0, len(table.Rows))
	for _, raw := range table.Rows {
		start, end, ok := p.windowBounds(raw)
		if !ok {
			c.parseErrors++
			continue
		}
		windows = append(windows, reconcile.Window{
			Start:       start,
			End:         end,
			ComponentID: utils.ToString(raw[w.ComponentColumn]),
		})
	}
	return windows, nil
}

func (p *Pipeline) windowBounds(raw map[string]any) (time.Time, time.Time, bool) {
	w := p.profile.Windows
	if w.DateColumn == "" {
		start, okStart := utils.ToTime(raw[w.StartColumn], p.location)
		end, okEnd := utils.ToTime(raw[w.EndColumn], p.location)
		return start, end, okStart && okEnd
	}

	day, ok := utils.ToTime(raw[w.DateColumn], p.location)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	startClock, okStart := utils.ToClock(raw[w.StartColumn])
	endClock, okEnd := utils.ToClock(raw[w.EndColumn])
	midnight := utils.Midnight(day)
	return midnight.Add(startClock), midnight.Add(endClock), okStart && okEnd
}

// requireColumns fails the cycle when a key column is absent from a non-empty table.
func requireColumns(table Table, stream string, columns ...string) error {
	if len(table.Rows) == 0 {
		return nil
	}
	for _, col := range columns {
		if !table.HasColumn(col) {
			return errors.Mark(errors.Newf("%s stream has no %q column", stream, col), errors.ErrSchemaMismatch)
		}
	}
	return nil
}

func renameRows(rows []reconcile.Row, rename map[string]string) []reconcile.Row {
	if len(rename) == 0 {
		return rows
	}
	for _, r := range rows {
		for from, to := range rename {
			if v, ok := r.Values[from]; ok && from != to {
				delete(r.Values, from)
				r.Values[to] = v
			}
		}
	}
	return rows
}

// Job adapts the pipeline to scheduler.Loop.
func (p *Pipeline) Job() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return p.RunCycle(ctx).Err
	}
}
