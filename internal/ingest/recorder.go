package ingest

import (
	"context"

	"github.com/kalambet/odin/internal/storage"
)

// StoreRecorder persists runs in the SQLite run history.
type StoreRecorder struct {
	Store *storage.Store
}

func (r StoreRecorder) RecordRun(ctx context.Context, run Run) error {
	return r.Store.SaveImportRun(ctx, ToStorage(run))
}

// ToStorage converts a Run to its persisted form.
func ToStorage(run Run) storage.ImportRun {
	out := storage.ImportRun{
		ID:          run.ID,
		RootPath:    run.RootPath,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Total:       run.Total,
		Processed:   run.Processed,
		Failed:      run.Failed,
		Embedded:    run.Embedded,
		EmbedFailed: run.EmbedFailed,
		Translation: run.Translation,
		GraphWrite:  run.GraphWrite,
		Embedding:   run.Embedding,
		Elapsed:     run.Elapsed,
		Reset:       run.Reset,
		Cancelled:   run.Cancelled,
	}
	for _, e := range run.Errors {
		out.Errors = append(out.Errors, storage.ImportError{
			Document: e.Document,
			Phase:    string(e.Phase),
			Message:  e.Message,
		})
	}
	return out
}

// FromStorage converts a persisted run back to a Run for reporting.
// Per-document results are not persisted and stay empty.
func FromStorage(in storage.ImportRun) Run {
	run := Run{
		ID:          in.ID,
		RootPath:    in.RootPath,
		StartedAt:   in.StartedAt,
		FinishedAt:  in.FinishedAt,
		Reset:       in.Reset,
		Cancelled:   in.Cancelled,
		Total:       in.Total,
		Processed:   in.Processed,
		Failed:      in.Failed,
		Embedded:    in.Embedded,
		EmbedFailed: in.EmbedFailed,
		Translation: in.Translation,
		GraphWrite:  in.GraphWrite,
		Embedding:   in.Embedding,
		Elapsed:     in.Elapsed,
	}
	for _, e := range in.Errors {
		run.Errors = append(run.Errors, DocError{Document: e.Document, Phase: Phase(e.Phase), Message: e.Message})
	}
	return run
}
