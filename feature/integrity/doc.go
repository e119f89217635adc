// Package integrity checks that the environment matches the site profile.
//
// # Checks Provided
//
//   - Schema: every source table exists and carries the columns the pipeline reads, and the report table carries the delivered columns.
//   - Exports: in storage mode, every stream prefix holds at least one export.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/exports : Runs the exports check (supports ?fix=true).
package integrity
