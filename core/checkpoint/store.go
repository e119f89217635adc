package checkpoint

import (
	"context"
	"time"

	"mixer-report/core/errors"

	"gorm.io/gorm"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "mixer_logger_id"

// Entry is one row of the checkpoint log.
type Entry struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	LastTimestamp time.Time `gorm:"column:last_timestamp;not null" json:"last_timestamp"`
}

// Store reads and appends checkpoint log rows in a single table.
type Store struct {
	db    *gorm.DB
	table string
}

// NewStore creates a store over table. An empty name selects DefaultTable.
func NewStore(db *gorm.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{db: db, table: table}
}

// Table returns the log table name.
func (s *Store) Table() string {
	return s.table
}

// Migrate creates the log table when it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&Entry{}); err != nil {
		return errors.Mark(errors.Wrapf(err, "create checkpoint table %s", s.table), errors.ErrCheckpoint)
	}
	return nil
}

// Latest returns the most recently appended checkpoint.
// The boolean is false when the log is empty.
func (s *Store) Latest(ctx context.Context) (time.Time, bool, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).Table(s.table).Order("id DESC").Limit(1).Find(&entries).Error
	if err != nil {
		return time.Time{}, false, errors.Mark(errors.Wrapf(err, "read checkpoint from %s", s.table), errors.ErrCheckpoint)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return entries[0].LastTimestamp, true, nil
}

// Append records ts as the new checkpoint.
// A timestamp older than the current checkpoint is rejected, so the value never decreases.
func (s *Store) Append(ctx context.Context, ts time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []Entry
		if err := tx.Table(s.table).Order("id DESC").Limit(1).Find(&entries).Error; err != nil {
			return errors.Mark(errors.Wrapf(err, "read checkpoint from %s", s.table), errors.ErrCheckpoint)
		}
		if len(entries) > 0 && ts.Before(entries[0].LastTimestamp) {
			return errors.Mark(
				errors.Newf("checkpoint %s is older than current %s", ts, entries[0].LastTimestamp),
				errors.ErrCheckpoint)
		}

		entry := Entry{LastTimestamp: ts}
		if err := tx.Table(s.table).Create(&entry).Error; err != nil {
			return errors.Mark(errors.Wrapf(err, "append checkpoint to %s", s.table), errors.ErrCheckpoint)
		}
		return nil
	})
}

// History returns up to limit log rows, newest first. A non-positive limit returns all rows.
func (s *Store) History(ctx context.Context, limit int) ([]Entry, error) {
	q := s.db.WithContext(ctx).Table(s.table).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read checkpoint history from %s", s.table), errors.ErrCheckpoint)
	}
	return entries, nil
}
