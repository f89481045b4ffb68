// Package textutil provides text processing utilities for payload normalization
// and filename sanitization.
//
// The primary use cases are:
//   - Stripping leading blank lines from decoded text payloads
//   - Sanitizing Part filenames so they stay inside the destination directory
//
// Normalization never fails: invalid UTF-8 is replaced with U+FFFD before the
// text is split into lines.
package textutil
