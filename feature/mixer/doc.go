// Package mixer implements the mixer report pipeline.
//
// A Profile describes one site: where the batch, dosing and production-window
// streams live, the shift table, and the report columns. Each cycle of a
// Pipeline loads the streams from a Source, repairs the dosing actuals, numbers
// and matches batches with dosing samples, attributes components and shifts,
// and hands the rows newer than the last checkpoint to a Sink. The checkpoint is
// advanced only after the sink accepted the rows, so a failed cycle is simply
// recomputed by the next one.
//
// Sources:
//   - DBSource reads tables over GORM.
//   - StorageSource reads the newest CSV or XLSX export from object storage.
//
// Sinks:
//   - TableSink appends to the report table.
//   - ArchiveSink stores a CSV copy of every delivery in object storage.
//   - KafkaSink publishes one message per row.
//
// FanoutSink combines them with the table as the primary. Build wires all of it
// from the application configuration.
package mixer
