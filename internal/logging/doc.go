// Package logging assembles structured slog loggers and formatting helpers used
// across xmlwatch.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys (path, part identity, outcome)
// that every ingestion log line carries. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
