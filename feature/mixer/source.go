package mixer

import (
	"context"
	"database/sql"

	"mixer-report/core/errors"

	"gorm.io/gorm"
)

// Stream names used in logs and by Source implementations.
const (
	StreamBatch   = "batch"
	StreamDosing  = "dosing"
	StreamWindows = "windows"
)

// Table is one raw stream as loaded from its source.
// Columns is known even when Rows is empty.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// HasColumn reports whether the table carries column.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Source loads raw streams. Failures are marked with errors.ErrSourceUnavailable.
type Source interface {
	Load(ctx context.Context, stream string, src StreamSource) (Table, error)
}

// DBSource reads streams from tables of a relational database.
type DBSource struct {
	db *gorm.DB
}

// NewDBSource creates a source over db.
func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) Load(ctx context.Context, stream string, src StreamSource) (Table, error) {
	if src.Table == "" {
		return Table{}, errors.Mark(errors.Newf("%s stream has no table", stream), errors.ErrInvalidConfig)
	}

	q := s.db.WithContext(ctx).Table(src.Table)
	if src.Limit > 0 {
		if src.OrderBy != "" {
			q = q.Order(src.OrderBy + " DESC")
		}
		q = q.Limit(src.Limit)
	}

	rows, err := q.Rows()
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "read %s table %s", stream, src.Table), errors.ErrSourceUnavailable)
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "scan %s table %s", stream, src.Table), errors.ErrSourceUnavailable)
	}
	return table, nil
}

// scanTable reads every row into a column map. Driver []byte values become strings.
func scanTable(rows *sql.Rows) (Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Table{}, err
	}

	table := Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Table{}, err
		}

		row := make(map[string]any, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, rows.Err()
}
