package envelope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks every envelope parse failure.
var ErrMalformed = errors.New("malformed envelope")

// MalformedError describes why an envelope was rejected. Index is -1 when the
// failure is not tied to a specific Part (for example an XML syntax error).
type MalformedError struct {
	Path     string
	Index    int
	PartID   string
	Filename string
	Reason   string
	Err      error
}

func (e *MalformedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformed.Error())
	if e.Path != "" {
		b.WriteByte(' ')
		b.WriteString(e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": part %d", e.Index)
		if e.PartID != "" {
			fmt.Fprintf(&b, " id=%q", e.PartID)
		}
		if e.Filename != "" {
			fmt.Fprintf(&b, " filename=%q", e.Filename)
		}
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is reports ErrMalformed as a match so callers can use errors.Is.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// ErrorKind classifies the failure for outcome reporting.
func (e *MalformedError) ErrorKind() string { return "malformed_envelope" }

func malformed(reason string, err error) *MalformedError {
	return &MalformedError{Index: -1, Reason: reason, Err: err}
}
