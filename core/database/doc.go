// Package database handles database connections and schema inspection.
//
// It wraps GORM to open either MySQL (plant databases) or SQLite (local runs
// and tests) from the application's configuration.
//
// # Connect
//
// Connect picks the dialector from Config.Driver, applies connection timeouts
// and pool limits, and pings once. Failures are marked with
// errors.ErrSourceUnavailable so the pipeline can skip a cycle instead of exiting.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns back the integrity check, which verifies
// that every configured source table carries the columns the site profile needs.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "batch_data", []string{"Date", "Time"})
package database
