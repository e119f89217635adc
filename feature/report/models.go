package report

import (
	"time"

	"mixer-report/core/checkpoint"
	"mixer-report/core/utils"
)

// Query selects one page of report rows.
type Query struct {
	Limit  int
	Offset int
	// Start and End bound the canonical timestamp, both inclusive. Nil means unbounded.
	Start *time.Time
	End   *time.Time
}

// Metadata describes the filtered row set a page was taken from.
type Metadata struct {
	TotalRecords int64   `json:"total_records"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Limit        int     `json:"limit"`
	Offset       int     `json:"offset"`
}

// Page is the success envelope of the report endpoint.
type Page struct {
	Status   string           `json:"status" example:"success"`
	Metadata Metadata         `json:"metadata"`
	Data     []map[string]any `json:"data"`
}

// CheckpointPage is the success envelope of the checkpoint history endpoint.
type CheckpointPage struct {
	Status string             `json:"status" example:"success"`
	Data   []CheckpointRecord `json:"data"`
}

// CheckpointRecord is one rendered checkpoint log row.
type CheckpointRecord struct {
	ID            uint64 `json:"id"`
	LastTimestamp string `json:"last_timestamp" example:"2025-03-14 08:59:00"`
}

// ErrorResponse is returned on any failure.
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message"`
}

func checkpointRecords(entries []checkpoint.Entry) []CheckpointRecord {
	out := make([]CheckpointRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, CheckpointRecord{ID: e.ID, LastTimestamp: utils.FormatTimestamp(e.LastTimestamp)})
	}
	return out
}
