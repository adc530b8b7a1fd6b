// Package main hosts the tzbuild CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into batch
// runs against the installer, discovery-only scans, environment status
// reports, run ledger queries, and configuration scaffolding. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
