package mixer

import (
	"context"
	"testing"

	"mixer-report/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopier_Copy(t *testing.T) {
	ctx := context.Background()
	upstream := setupSQLite(t)
	local := setupSQLite(t)

	schema := "CREATE TABLE prepared_sand (ID INTEGER PRIMARY KEY, date TEXT, time TEXT, compactability REAL)"
	require.NoError(t, upstream.Exec(schema).Error)
	require.NoError(t, local.Exec(schema).Error)

	for i, clock := range []string{"08:59:00", "09:05:00", "09:10:00"} {
		require.NoError(t, upstream.Exec("INSERT INTO prepared_sand VALUES (?, '2025-03-14', ?, ?)", i+1, clock, 38.0+float64(i)).Error)
	}
	require.NoError(t, local.Exec("INSERT INTO prepared_sand VALUES (1, '2025-03-14', '08:59:00', 38.0)").Error)

	copier := NewCopier(upstream, local, nil)

	res, err := copier.Copy(ctx, "prepared_sand", "ID")
	require.NoError(t, err)
	assert.Equal(t, CopyResult{Read: 3, Skipped: 1, Inserted: 2}, res)

	var count int64
	require.NoError(t, local.Table("prepared_sand").Count(&count).Error)
	assert.EqualValues(t, 3, count)

	// A second copy finds nothing new.
	res, err = copier.Copy(ctx, "prepared_sand", "ID")
	require.NoError(t, err)
	assert.Equal(t, CopyResult{Read: 3, Skipped: 3}, res)

	t.Run("MissingKey", func(t *testing.T) {
		_, err := copier.Copy(ctx, "prepared_sand", "Batch_ID")
		assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
	})

	t.Run("MissingUpstreamTable", func(t *testing.T) {
		_, err := copier.Copy(ctx, "additive_data", "ID")
		assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	})

	t.Run("MissingLocalTable", func(t *testing.T) {
		require.NoError(t, upstream.Exec("CREATE TABLE consumption_booking (ID INTEGER PRIMARY KEY, component_id TEXT)").Error)
		require.NoError(t, upstream.Exec("INSERT INTO consumption_booking VALUES (1, 'COMP-7')").Error)

		_, err := copier.Copy(ctx, "consumption_booking", "ID")
		assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	})
}
