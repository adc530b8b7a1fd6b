// Package trainzutil mediates access to the external installer CLI.
//
// It normalizes command invocation, bounds each call with a timeout, and
// classifies failures into launch errors (the executable could not start) and
// exit errors (the tool ran and reported failure). Output is captured as raw
// text for diagnostics only; nothing in this package, or above it, parses the
// installer's output format.
//
// Prefer this package over ad-hoc exec.Command usage when interacting with
// the installer so timeout and interrupt handling remain consistent.
package trainzutil
