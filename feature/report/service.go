package report

import (
	"context"
	"fmt"
	"time"

	"mixer-report/core/checkpoint"
	"mixer-report/core/database"
	"mixer-report/core/errors"
	"mixer-report/core/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit           = 100
	DefaultCheckpointLimit = 20
)

// Service serves pages of the report table and its checkpoint log.
type Service struct {
	db              *gorm.DB
	table           string
	timestampColumn string
	checkpoints     *checkpoint.Store
	location        *time.Location
	logger          *zap.Logger
	sf              singleflight.Group
}

// NewService creates a report service over table, filtering on timestampColumn.
func NewService(db *gorm.DB, table, timestampColumn string, checkpoints *checkpoint.Store, location *time.Location, logger *zap.Logger) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{
		db:              db,
		table:           table,
		timestampColumn: timestampColumn,
		checkpoints:     checkpoints,
		location:        location,
		logger:          logger,
	}
}

// Location is the zone date filters are parsed in.
func (s *Service) Location() *time.Location {
	return s.location
}

type summary struct {
	total      int64
	start, end *string
}

// Fetch returns one page of report rows, newest first, with metadata of the filtered set.
// A missing report table fails with errors.ErrNotFound.
func (s *Service) Fetch(ctx context.Context, q Query) (Page, error) {
	if !database.HasTable(s.db, s.table) {
		return Page{}, errors.Mark(errors.Newf("report table %s does not exist", s.table), errors.ErrNotFound)
	}

	// Identical concurrent filters share one aggregate query.
	key := fmt.Sprintf("%s|%v|%v", s.table, q.Start, q.End)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.summarize(ctx, q)
	})
	if err != nil {
		return Page{}, err
	}
	sum := v.(summary)

	var rows []map[string]any
	err = s.filtered(ctx, q).
		Order(clause.OrderByColumn{Column: clause.Column{Name: s.timestampColumn}, Desc: true}).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return Page{}, errors.Wrapf(err, "query %s", s.table)
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = formatValue(v)
		}
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return Page{
		Status: "success",
		Metadata: Metadata{
			TotalRecords: sum.total,
			StartTime:    sum.start,
			EndTime:      sum.end,
			Limit:        q.Limit,
			Offset:       q.Offset,
		},
		Data: rows,
	}, nil
}

func (s *Service) summarize(ctx context.Context, q Query) (summary, error) {
	col := clause.Column{Name: s.timestampColumn}
	row := s.filtered(ctx, q).
		Select("COUNT(*), MIN(?), MAX(?)", col, col).
		Row()
	if err := row.Err(); err != nil {
		return summary{}, errors.Wrapf(err, "summarize %s", s.table)
	}

	var (
		sum        summary
		start, end any
	)
	if err := row.Scan(&sum.total, &start, &end); err != nil {
		return summary{}, errors.Wrapf(err, "summarize %s", s.table)
	}
	sum.start = s.timeString(start)
	sum.end = s.timeString(end)
	return sum, nil
}

func (s *Service) filtered(ctx context.Context, q Query) *gorm.DB {
	tx := s.db.WithContext(ctx).Table(s.table)
	col := clause.Column{Name: s.timestampColumn}
	if q.Start != nil {
		tx = tx.Where(clause.Gte{Column: col, Value: *q.Start})
	}
	if q.End != nil {
		tx = tx.Where(clause.Lte{Column: col, Value: *q.End})
	}
	return tx
}

func (s *Service) timeString(v any) *string {
	if v == nil {
		return nil
	}
	ts, ok := utils.ToTime(v, s.location)
	if !ok {
		str := utils.ToString(v)
		return &str
	}
	str := utils.FormatTimestamp(ts)
	return &str
}

// Checkpoints returns the newest checkpoint log entries.
func (s *Service) Checkpoints(ctx context.Context, limit int) ([]CheckpointRecord, error) {
	if s.checkpoints == nil {
		return nil, errors.Mark(errors.New("checkpoint log not configured"), errors.ErrNotFound)
	}
	if !database.HasTable(s.db, s.checkpoints.Table()) {
		return nil, errors.Mark(errors.Newf("checkpoint table %s does not exist", s.checkpoints.Table()), errors.ErrNotFound)
	}
	entries, err := s.checkpoints.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return checkpointRecords(entries), nil
}

// formatValue renders driver values for JSON: text as strings, timestamps in the report layout.
func formatValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return utils.FormatTimestamp(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return utils.FormatTimestamp(*t)
	default:
		return v
	}
}
