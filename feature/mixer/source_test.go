package mixer

import (
	"context"
	"testing"

	"mixer-report/core/database"
	"mixer-report/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestDBSource_Load(t *testing.T) {
	ctx := context.Background()
	db := setupSQLite(t)
	require.NoError(t, db.Exec("CREATE TABLE mixer (ID INTEGER PRIMARY KEY, Date_Time TEXT, Sand_Temp REAL)").Error)
	for i, ts := range []string{"2025-03-14 08:00:00", "2025-03-14 08:05:00", "2025-03-14 08:10:00"} {
		require.NoError(t, db.Exec("INSERT INTO mixer (ID, Date_Time, Sand_Temp) VALUES (?, ?, ?)", i+1, ts, 40.0+float64(i)).Error)
	}
	src := NewDBSource(db)

	t.Run("All", func(t *testing.T) {
		table, err := src.Load(ctx, StreamBatch, StreamSource{Table: "mixer"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ID", "Date_Time", "Sand_Temp"}, table.Columns)
		require.Len(t, table.Rows, 3)
		assert.Equal(t, "2025-03-14 08:00:00", table.Rows[0]["Date_Time"])
	})

	t.Run("NewestLimit", func(t *testing.T) {
		table, err := src.Load(ctx, StreamBatch, StreamSource{Table: "mixer", OrderBy: "ID", Limit: 2})
		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		assert.EqualValues(t, 3, table.Rows[0]["ID"])
		assert.EqualValues(t, 2, table.Rows[1]["ID"])
	})

	t.Run("EmptyKeepsColumns", func(t *testing.T) {
		require.NoError(t, db.Exec("CREATE TABLE additive_data (datetime TEXT, Coal_Dust_Set_Kgs REAL)").Error)
		table, err := src.Load(ctx, StreamDosing, StreamSource{Table: "additive_data"})
		require.NoError(t, err)
		assert.True(t, table.HasColumn("Coal_Dust_Set_Kgs"))
		assert.Empty(t, table.Rows)
	})

	t.Run("MissingTable", func(t *testing.T) {
		_, err := src.Load(ctx, StreamWindows, StreamSource{Table: "consumption_booking"})
		assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	})

	t.Run("NoTable", func(t *testing.T) {
		_, err := src.Load(ctx, StreamWindows, StreamSource{})
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}
