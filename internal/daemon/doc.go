// Package daemon coordinates the long-running xmlwatch process.
//
// It wires configuration, the ingestion ledger, the ingest handler, and the
// directory watcher into a single lifecycle with flock-based locking to
// prevent multiple instances. Start runs in a fixed order: lock, directories
// and preflight, stale staging cleanup, watch subscription, backlog
// reconciliation, then workers. Notifications that arrive during
// reconciliation are buffered and handled afterwards.
//
// Keep orchestration logic here: per-file processing lives in ingest and the
// notification plumbing in watch.
package daemon
