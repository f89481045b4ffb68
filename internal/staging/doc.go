// Package staging publishes decoded Part payloads into the destination
// directory without ever exposing a partially-written file at its final path.
//
// Each attempt writes into a uniquely named file under the staging
// subdirectory of the destination, flushes it to disk, and renames it into
// place. Because the staging subdirectory lives inside the destination, the
// rename never crosses a filesystem boundary. CleanStale removes staged files
// left behind by a crash.
package staging
