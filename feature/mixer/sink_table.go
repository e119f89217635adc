package mixer

import (
	"context"

	"mixer-report/core/errors"

	"gorm.io/gorm"
)

const tableBatchSize = 500

// TableSink appends delivered rows to a report table in one transaction.
type TableSink struct {
	db    *gorm.DB
	table string
}

// NewTableSink creates a sink appending to table.
func NewTableSink(db *gorm.DB, table string) *TableSink {
	return &TableSink{db: db, table: table}
}

func (s *TableSink) Name() string {
	return "table:" + s.table
}

func (s *TableSink) Write(ctx context.Context, d Delivery) error {
	if len(d.Records) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(d.Records); start += tableBatchSize {
			end := min(start+tableBatchSize, len(d.Records))
			batch := make([]map[string]any, 0, end-start)
			for _, r := range d.Records[start:end] {
				batch = append(batch, r.Values)
			}
			if err := tx.Table(s.table).Create(batch).Error; err != nil {
				return errors.Mark(errors.Wrapf(err, "append %d rows to %s", len(batch), s.table), errors.ErrSinkWrite)
			}
		}
		return nil
	})
}
