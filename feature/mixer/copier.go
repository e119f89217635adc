package mixer

import (
	"context"

	"mixer-report/core/errors"
	"mixer-report/core/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CopyResult counts the rows handled by one copy.
type CopyResult struct {
	Read     int `json:"read"`
	Skipped  int `json:"skipped"`
	Inserted int `json:"inserted"`
}

// Copier appends upstream rows to the same table of the local database,
// skipping rows whose key is already present locally.
type Copier struct {
	upstream  *gorm.DB
	local     *gorm.DB
	batchSize int
	logger    *zap.Logger
}

// NewCopier creates a copier from upstream to local.
func NewCopier(upstream, local *gorm.DB, logger *zap.Logger) *Copier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{upstream: upstream, local: local, batchSize: tableBatchSize, logger: logger}
}

// Copy copies new rows of table, identified by key.
func (c *Copier) Copy(ctx context.Context, table, key string) (CopyResult, error) {
	var res CopyResult

	rows, err := c.upstream.WithContext(ctx).Table(table).Rows()
	if err != nil {
		return res, errors.Mark(errors.Wrapf(err, "read upstream %s", table), errors.ErrSourceUnavailable)
	}
	src, err := scanTable(rows)
	rows.Close()
	if err != nil {
		return res, errors.Mark(errors.Wrapf(err, "scan upstream %s", table), errors.ErrSourceUnavailable)
	}
	res.Read = len(src.Rows)
	if res.Read > 0 && !src.HasColumn(key) {
		return res, errors.Mark(errors.Newf("upstream %s has no key column %q", table, key), errors.ErrSchemaMismatch)
	}

	var existing []any
	if err := c.local.WithContext(ctx).Table(table).Pluck(key, &existing).Error; err != nil {
		return res, errors.Mark(errors.Wrapf(err, "read local keys of %s", table), errors.ErrSourceUnavailable)
	}
	seen := make(map[string]bool, len(existing))
	for _, k := range existing {
		seen[keyString(k)] = true
	}

	fresh := make([]map[string]any, 0, len(src.Rows))
	for _, row := range src.Rows {
		k := keyString(row[key])
		if seen[k] {
			res.Skipped++
			continue
		}
		seen[k] = true
		fresh = append(fresh, row)
	}

	if len(fresh) == 0 {
		c.logger.Info("Nothing to copy", zap.String("table", table), zap.Int("read", res.Read))
		return res, nil
	}

	err = c.local.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(fresh); start += c.batchSize {
			end := min(start+c.batchSize, len(fresh))
			if err := tx.Table(table).Create(fresh[start:end]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, errors.Mark(errors.Wrapf(err, "append %d rows to %s", len(fresh), table), errors.ErrSinkWrite)
	}
	res.Inserted = len(fresh)

	c.logger.Info("Table copied",
		zap.String("table", table),
		zap.Int("read", res.Read),
		zap.Int("skipped", res.Skipped),
		zap.Int("inserted", res.Inserted))
	return res, nil
}

func keyString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return utils.ToString(v)
}
