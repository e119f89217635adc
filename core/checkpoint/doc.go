// Package checkpoint stores the last delivered report timestamp.
//
// The log is append-only: every delivery inserts a new (id, last_timestamp)
// row and the current checkpoint is the row with the highest id. Rows are never
// updated, so the table doubles as an audit trail of deliveries.
//
//	store := checkpoint.NewStore(db, "mixer_logger_id")
//	last, ok, err := store.Latest(ctx)
//	err = store.Append(ctx, maxDelivered)
package checkpoint
