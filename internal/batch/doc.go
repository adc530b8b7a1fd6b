// Package batch drives whole-tree asset runs: discover assets under a root,
// process each one with the installer, and report per-asset outcomes.
//
// A run holds an exclusive lock so two batches never interleave installer
// calls, preflights the environment before touching the first asset, and
// isolates failures per asset: one rejected or unreadable asset never stops
// the rest of the tree. Outcomes keep the order assets were discovered in.
//
// Two verbs exist. Build stages a disposable copy of each asset with its
// identity swapped for the placeholder, pushes the copy through an
// install/commit/validate/delete cycle, and releases the copy; the real asset
// and catalog entry stay untouched. Install submits the asset's own directory
// and commits its real identity.
package batch
