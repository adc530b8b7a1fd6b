// Package history persists per-run batch outcomes in a local SQLite ledger.
//
// Each completed run is stored as one row in runs plus one row per processed
// asset in run_outcomes. The ledger is advisory: recording failures must never
// fail a batch, so callers log and continue when writes error. Retention is
// count-based; the oldest runs are pruned once the configured cap is exceeded.
package history
