// Package report exposes the reconciled mixer report over HTTP.
//
// GET /api/mixer-report pages through the report table newest first, with an
// inclusive date filter on the canonical timestamp:
//
//	{"status": "success",
//	 "metadata": {"total_records": 2, "start_time": "...", "end_time": "...", "limit": 100, "offset": 0},
//	 "data": [...]}
//
// Failures answer {"status": "error", "message": "..."} with 404 when the
// report table does not exist and 500 otherwise. GET /api/mixer-report/checkpoints
// lists the checkpoint log.
package report
