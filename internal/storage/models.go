package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ImportRun is the persisted summary of one vault import.
type ImportRun struct {
	ID          string
	RootPath    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Processed   int
	Failed      int
	Embedded    int
	EmbedFailed int
	Translation time.Duration
	GraphWrite  time.Duration
	Embedding   time.Duration
	Elapsed     time.Duration
	Reset       bool
	Cancelled   bool
	Errors      []ImportError
}

// ImportError is one recorded per-document failure.
type ImportError struct {
	Document string
	Phase    string
	Message  string
}
