// Package main hosts the xmlwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree starts the long-running watcher (run), pushes
// individual files through the same handler by hand (process), renders the
// ingestion ledger (history), and scaffolds configuration (config). It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: new behavior belongs in the internal packages first,
// surfaced here through dedicated commands or flags.
package main
