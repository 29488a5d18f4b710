package ingest

import "time"

// Mode is the translation strategy used for a document.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Phase names the step a document failed in.
type Phase string

const (
	PhaseRead       Phase = "read"
	PhaseTranslate  Phase = "translation"
	PhaseGraphWrite Phase = "graph_write"
	PhaseEmbedding  Phase = "embedding"
)

// Status is the outcome of the graph pass for one document.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// DocError is one recorded per-document failure.
type DocError struct {
	Document string
	Phase    Phase
	Message  string
}

// DocResult is the graph pass outcome of one document.
type DocResult struct {
	Document   string
	Mode       Mode
	Status     Status
	Statements int
	Chunks     int
}

// Run accumulates the statistics of one import. It is owned by the
// Importer while running and returned by value once finalized.
type Run struct {
	ID         string
	RootPath   string
	StartedAt  time.Time
	FinishedAt time.Time
	Reset      bool
	Cancelled  bool

	Total       int
	Processed   int
	Failed      int
	Embedded    int
	EmbedFailed int

	Translation time.Duration
	GraphWrite  time.Duration
	Embedding   time.Duration
	Elapsed     time.Duration

	Documents []DocResult
	Errors    []DocError
}

// AvgPerDocument is the total run time divided by the processed count, or
// zero when nothing was processed.
func (r Run) AvgPerDocument() time.Duration {
	if r.Processed == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Processed)
}

// AvgTranslation is the mean translation time over every document that
// finished the graph pass, processed or failed.
func (r Run) AvgTranslation() time.Duration {
	n := r.Processed + r.Failed
	if n == 0 {
		return 0
	}
	return r.Translation / time.Duration(n)
}

// AvgGraphWrite is the mean graph write time over processed documents.
func (r Run) AvgGraphWrite() time.Duration {
	if r.Processed == 0 {
		return 0
	}
	return r.GraphWrite / time.Duration(r.Processed)
}

// Share returns d as a percentage of the total run time.
func (r Run) Share(d time.Duration) float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(d) / float64(r.Elapsed) * 100
}

func (r *Run) fail(doc string, phase Phase, err error) {
	r.Errors = append(r.Errors, DocError{Document: doc, Phase: phase, Message: err.Error()})
}
