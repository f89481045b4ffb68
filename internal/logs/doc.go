// Package logs reads the daemon's log files for the CLI.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// polls for appended lines from a byte offset until the context ends. The
// log pointer written by the run command is a symlink, so callers can pass it
// directly and always read the current run's file.
package logs
