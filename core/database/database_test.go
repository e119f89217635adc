package database

import (
	"testing"

	"mixer-report/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "mixer",
			Driver:         DriverMySQL,
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
		assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	})

	t.Run("SQLite In Memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)
		require.NotNil(t, db)

		require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
		// Same single connection, so the table is still visible.
		assert.True(t, db.Migrator().HasTable("t"))
		assert.NoError(t, Close(db))
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		_, err := Connect(Config{Driver: "oracle"})
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}
