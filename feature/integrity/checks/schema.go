package checks

import (
	"fmt"
	"sort"

	"mixer-report/core/database"
	"mixer-report/core/errors"

	"gorm.io/gorm"
)

// Target is a table and the columns the pipeline reads from or writes to it.
type Target struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// SchemaReport strictly types the result of a schema check.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	Table          string   `json:"table"`
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "missing", "error"
}

// CheckSchema verifies that every target table exists and carries its columns.
// Targets are keyed by the stream or sink name they serve.
func CheckSchema(db *gorm.DB, targets map[string]Target) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := targets[name]
		tbl := TableReport{Table: target.Table, MissingColumns: []string{}, Status: "ok"}

		missing, err := database.MissingColumns(db, target.Table, target.Columns)
		switch {
		case errors.Is(err, errors.ErrNotFound):
			tbl.Status = "missing"
			report.Matched = false
		case err != nil:
			tbl.Status = "error"
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", target.Table, err))
			report.Matched = false
		case len(missing) > 0:
			tbl.MissingColumns = missing
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[name] = tbl
	}

	return report, nil
}
