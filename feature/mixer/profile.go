package mixer

import (
	"os"

	"mixer-report/core/errors"
	"mixer-report/core/reconcile"
	"mixer-report/core/shift"
	"mixer-report/core/utils"

	"gopkg.in/yaml.v3"
)

// Default output column names.
const (
	DefaultTimestampColumn = "timestamp"
	DefaultShiftColumn     = "shift"
	DefaultComponentColumn = "component_id"
	DefaultMixerColumn     = "mixer_name"
	DefaultSequenceColumn  = "batch_counter"
)

// StreamSource says where one raw stream is read from.
type StreamSource struct {
	// Table is read in database mode.
	Table string `yaml:"table" json:"table"`
	// Prefix selects the newest export object in storage mode.
	Prefix string `yaml:"prefix" json:"prefix"`
	// Sheet picks a worksheet of an XLSX export; empty means the first one.
	Sheet string `yaml:"sheet" json:"sheet"`
	// SkipRows drops banner rows above the header of an export.
	SkipRows int `yaml:"skip_rows" json:"skip_rows"`
	// OrderBy and Limit cap a database read to the newest Limit rows.
	OrderBy string `yaml:"order_by" json:"order_by"`
	Limit   int    `yaml:"limit" json:"limit"`
	// FoundryAdjust moves timestamps before the first shift onto the previous production day.
	FoundryAdjust bool `yaml:"foundry_adjust" json:"foundry_adjust"`
}

// BatchStream describes the batch-cycle measurements.
// The timestamp is either DatetimeColumn or DateColumn plus TimeColumn.
type BatchStream struct {
	StreamSource   `yaml:",inline"`
	DatetimeColumn string `yaml:"datetime_column" json:"datetime_column"`
	DateColumn     string `yaml:"date_column" json:"date_column"`
	TimeColumn     string `yaml:"time_column" json:"time_column"`
	// GroupKey resets the batch sequence counter.
	GroupKey string `yaml:"group_key" json:"group_key"`
	// FoundryDated says DateColumn already carries the production day, so rows
	// after midnight keep the previous calendar date.
	FoundryDated bool `yaml:"foundry_dated" json:"foundry_dated"`
}

// OnFoundryDay reports whether batch timestamps are on the production-day
// timeline, either adjusted by the pipeline or dated that way by the source.
func (b BatchStream) OnFoundryDay() bool {
	return b.FoundryAdjust || b.FoundryDated
}

// DosingStream describes the additive-dosing samples.
type DosingStream struct {
	StreamSource   `yaml:",inline"`
	DatetimeColumn string                 `yaml:"datetime_column" json:"datetime_column"`
	Pairs          []reconcile.ColumnPair `yaml:"pairs" json:"pairs"`
	// Rename maps raw dosing columns to report names after cleaning.
	Rename map[string]string `yaml:"rename" json:"rename"`
}

// WindowStream describes the production-run schedule.
// Start and end are either full timestamps or times of day combined with DateColumn.
type WindowStream struct {
	StreamSource    `yaml:",inline"`
	DateColumn      string `yaml:"date_column" json:"date_column"`
	StartColumn     string `yaml:"start_column" json:"start_column"`
	EndColumn       string `yaml:"end_column" json:"end_column"`
	ComponentColumn string `yaml:"component_column" json:"component_column"`
	InclusiveEnd    bool   `yaml:"inclusive_end" json:"inclusive_end"`
}

// ShiftSpec is one row of the shift table.
type ShiftSpec struct {
	Label string `yaml:"label" json:"label"`
	Start string `yaml:"start" json:"start"`
}

// PolicySpec configures the canonical report timestamp.
type PolicySpec struct {
	Shift    string `yaml:"shift" json:"shift"`
	Before   string `yaml:"before" json:"before"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// Columns names the columns the pipeline adds.
type Columns struct {
	Timestamp  string `yaml:"timestamp" json:"timestamp"`
	Shift      string `yaml:"shift" json:"shift"`
	Component  string `yaml:"component" json:"component"`
	Mixer      string `yaml:"mixer" json:"mixer"`
	Sequence   string `yaml:"sequence" json:"sequence"`
	FoundryDay string `yaml:"foundry_day" json:"foundry_day"`
}

// SinkSpec names the report and checkpoint tables.
type SinkSpec struct {
	Table           string `yaml:"table" json:"table"`
	CheckpointTable string `yaml:"checkpoint_table" json:"checkpoint_table"`
}

// Profile is the per-site pipeline configuration.
// Build it with LoadProfile or ParseProfile; it is not modified afterwards.
type Profile struct {
	Site           string              `yaml:"site" json:"site"`
	MixerName      string              `yaml:"mixer_name" json:"mixer_name"`
	Shifts         []ShiftSpec         `yaml:"shifts" json:"shifts"`
	Policy         PolicySpec          `yaml:"timestamp_policy" json:"timestamp_policy"`
	MatchDirection reconcile.Direction `yaml:"match_direction" json:"match_direction"`
	Batch          BatchStream         `yaml:"batch" json:"batch"`
	Dosing         *DosingStream       `yaml:"dosing" json:"dosing"`
	Windows        *WindowStream       `yaml:"windows" json:"windows"`
	Columns        Columns             `yaml:"columns" json:"columns"`
	OutputColumns  []string            `yaml:"output_columns" json:"output_columns"`
	OutputRename   map[string]string   `yaml:"output_rename" json:"output_rename"`
	Sink           SinkSpec            `yaml:"sink" json:"sink"`

	calendar *shift.Calendar
	policy   shift.TimestampPolicy
}

// LoadProfile reads and validates a profile document (YAML or JSON).
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read profile %s", path), errors.ErrInvalidConfig)
	}
	return ParseProfile(raw)
}

// ParseProfile decodes and validates a profile document.
func ParseProfile(raw []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode profile"), errors.ErrInvalidConfig)
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) init() error {
	p.applyDefaults()

	var shifts []shift.Shift
	for _, s := range p.Shifts {
		parsed, err := shift.ParseShift(s.Label, s.Start)
		if err != nil {
			return errors.Mark(err, errors.ErrInvalidConfig)
		}
		shifts = append(shifts, parsed)
	}
	cal, err := shift.NewCalendar(shifts)
	if err != nil {
		return err
	}
	p.calendar = cal

	// Rolling forward only undoes a move onto the production day; calendar
	// timestamps are delivered unchanged.
	p.policy = shift.TimestampPolicy{
		Shift:    p.Policy.Shift,
		Disabled: p.Policy.Disabled || !p.Batch.OnFoundryDay(),
	}
	if p.Policy.Before != "" {
		before, ok := utils.ParseClock(p.Policy.Before)
		if !ok {
			return invalid("timestamp_policy.before %q is not a time of day", p.Policy.Before)
		}
		p.policy.Before = before
	}

	return p.validate()
}

func (p *Profile) applyDefaults() {
	if p.MatchDirection == "" {
		p.MatchDirection = reconcile.DirectionNearest
	}
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&p.Columns.Timestamp, DefaultTimestampColumn)
	def(&p.Columns.Shift, DefaultShiftColumn)
	def(&p.Columns.Component, DefaultComponentColumn)
	def(&p.Columns.Mixer, DefaultMixerColumn)
	def(&p.Columns.Sequence, DefaultSequenceColumn)
	def(&p.Sink.CheckpointTable, p.Sink.Table+"_logger_id")
}

func (p *Profile) validate() error {
	if !p.MatchDirection.Valid() {
		return invalid("match_direction %q must be nearest, forward or backward", p.MatchDirection)
	}
	if p.Batch.DatetimeColumn == "" && (p.Batch.DateColumn == "" || p.Batch.TimeColumn == "") {
		return invalid("batch needs datetime_column or both date_column and time_column")
	}
	if p.Dosing != nil && p.Dosing.DatetimeColumn == "" {
		return invalid("dosing.datetime_column is required")
	}
	if w := p.Windows; w != nil && (w.StartColumn == "" || w.EndColumn == "" || w.ComponentColumn == "") {
		return invalid("windows need start_column, end_column and component_column")
	}
	if p.Sink.Table == "" {
		return invalid("sink.table is required")
	}
	if len(p.OutputColumns) == 0 {
		return invalid("output_columns must not be empty")
	}
	if p.policy.Shift != "" && !p.hasShift(p.policy.Shift) {
		return invalid("timestamp_policy.shift %q is not a configured shift", p.policy.Shift)
	}
	if !p.Policy.Disabled && (p.Policy.Shift != "" || p.Policy.Before != "") && !p.Batch.OnFoundryDay() {
		return invalid("timestamp_policy needs batch.foundry_adjust or batch.foundry_dated")
	}
	for name, src := range p.Streams() {
		if src.SkipRows < 0 {
			return invalid("%s.skip_rows must not be negative", name)
		}
		if src.Limit < 0 {
			return invalid("%s.limit must not be negative", name)
		}
	}
	return nil
}

func (p *Profile) hasShift(label string) bool {
	for _, s := range p.calendar.Shifts() {
		if s.Label == label {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return errors.Mark(errors.Newf("profile: "+format, args...), errors.ErrInvalidConfig)
}

// Calendar returns the shift calendar built from the shift table.
func (p *Profile) Calendar() *shift.Calendar {
	return p.calendar
}

// TimestampPolicy returns the canonical timestamp rule.
func (p *Profile) TimestampPolicy() shift.TimestampPolicy {
	return p.policy
}

// SelectedColumns returns the delivered columns before output renaming,
// with the timestamp column first and listed once.
func (p *Profile) SelectedColumns() []string {
	cols := []string{p.Columns.Timestamp}
	for _, c := range p.OutputColumns {
		if c == p.Columns.Timestamp {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// OutputName returns the delivered name of a selected column.
func (p *Profile) OutputName(column string) string {
	if renamed, ok := p.OutputRename[column]; ok && renamed != "" {
		return renamed
	}
	return column
}

// ReportTimestampColumn is the delivered name of the canonical timestamp column.
func (p *Profile) ReportTimestampColumn() string {
	return p.OutputName(p.Columns.Timestamp)
}

// Streams lists the configured source streams by name.
func (p *Profile) Streams() map[string]StreamSource {
	out := map[string]StreamSource{StreamBatch: p.Batch.StreamSource}
	if p.Dosing != nil {
		out[StreamDosing] = p.Dosing.StreamSource
	}
	if p.Windows != nil {
		out[StreamWindows] = p.Windows.StreamSource
	}
	return out
}

// RequiredColumns lists, per stream, the raw columns the pipeline reads.
func (p *Profile) RequiredColumns() map[string][]string {
	var batch []string
	if p.Batch.DatetimeColumn != "" {
		batch = append(batch, p.Batch.DatetimeColumn)
	} else {
		batch = append(batch, p.Batch.DateColumn, p.Batch.TimeColumn)
	}
	if p.Batch.GroupKey != "" {
		batch = append(batch, p.Batch.GroupKey)
	}
	out := map[string][]string{StreamBatch: batch}

	if d := p.Dosing; d != nil {
		cols := []string{d.DatetimeColumn}
		for _, pair := range d.Pairs {
			cols = append(cols, pair.Setpoint, pair.Actual)
		}
		out[StreamDosing] = cols
	}
	if w := p.Windows; w != nil {
		cols := []string{w.StartColumn, w.EndColumn, w.ComponentColumn}
		if w.DateColumn != "" {
			cols = append([]string{w.DateColumn}, cols...)
		}
		out[StreamWindows] = cols
	}
	return out
}
