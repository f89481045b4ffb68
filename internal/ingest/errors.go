package ingest

import (
	"errors"
	"fmt"
)

// ErrStorage marks I/O failures while reading, staging, publishing, or
// relocating files.
var ErrStorage = errors.New("storage failure")

// StorageError wraps an I/O error with the operation and path involved.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrStorage, e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ErrorKind classifies the failure for outcome reporting.
func (e *StorageError) ErrorKind() string { return "storage" }

// errorClassifier is implemented by errors that name their own kind.
type errorClassifier interface {
	ErrorKind() string
}

// ErrorKind returns the classification of err, or "unknown".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier errorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "unknown"
}

// errVanished reports that the file disappeared before it could be handled.
var errVanished = errors.New("file no longer exists")
