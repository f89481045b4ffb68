// Package ledger journals ingestion outcomes in a SQLite database.
//
// Every handled file produces one row: the path, which dispatch kind handled
// it, the resulting status, how many parts were published, a BLAKE3 digest of
// the input, and the error if any. The ledger backs the history command and is
// never on the critical path: a write failure is logged by the caller and the
// file outcome stands.
//
// The schema is managed by embedded, ordered migrations.
package ledger
