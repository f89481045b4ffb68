package ingest

import "time"

// Status is the terminal state of one handling attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusIgnored   Status = "ignored"
)

// Outcome describes what happened to one file.
type Outcome struct {
	Path   string
	Kind   FileKind
	Status Status
	// Reason is a short explanation for ignored and failed outcomes.
	Reason string
	// Parts is the number of Parts in the envelope; zero for plain files.
	Parts     int
	Published []string
	Digest    string
	// Part identifies the failing Part, when the failure is tied to one.
	Part     *PartRef
	Err      error
	Duration time.Duration
}

// PartRef names a Part within its envelope.
type PartRef struct {
	Index    int
	ID       string
	Filename string
}
