// Package reconcile holds the time-series reconciliation core used by the mixer pipeline.
//
// Every stream is a slice of Row values positioned by timestamp. The package
// provides four independent steps:
//
//   - ReconcileActuals repairs (setpoint, actual) dosing columns.
//   - AssignSequence numbers batch events per grouping key.
//   - Join pairs each batch event with the closest dosing sample.
//   - WindowResolver finds the production window active at a timestamp.
//
// None of them touch I/O or global state; the pipeline in feature/mixer wires
// them together once per cycle.
//
// # Matching
//
// Join requires both streams sorted ascending and fails with errors.ErrOrdering
// otherwise. Nearest matching breaks equal distances towards the earlier row.
//
//	joined, err := reconcile.Join(batches, dosing, reconcile.DirectionNearest)
//
// # Windows
//
// Windows are indexed by start time; lookups return the first window in the
// original list order when several overlap.
//
//	resolver := reconcile.NewWindowResolver(windows, reconcile.WindowOptions{})
//	component, ok := resolver.Resolve(ts)
package reconcile
