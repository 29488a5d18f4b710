// Package ingest drives a batch import of vault documents into the graph
// store and the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/odin/internal/logger"
	"github.com/kalambet/odin/internal/prompts"
	"github.com/kalambet/odin/internal/vault"
)

// progressEvery is how often, in documents, progress and ETA are reported.
const progressEvery = 10

// GraphStore is the part of the graph store the importer writes through.
type GraphStore interface {
	IsEmpty(ctx context.Context) (bool, error)
	DeleteAll(ctx context.Context) error
	ExportForRoot(ctx context.Context, root string) (string, error)
	RunUpdate(ctx context.Context, query string, params map[string]any) error
}

// Synthesizer turns note text into Cypher statements.
type Synthesizer interface {
	SynthesizeCreate(ctx context.Context, text, rootPath, filePath string) (string, error)
	SynthesizeUpdate(ctx context.Context, data, text, rootPath, filePath string) (string, error)
}

// DocumentIndexer writes document embeddings to the vector store.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, sourceID, text string, tags []string) (int, error)
	Reset(ctx context.Context) error
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// ReadFunc returns the text of a document.
type ReadFunc func(vault.Document) (string, error)

// Progress is reported every few documents during the graph pass.
type Progress struct {
	Done    int
	Total   int
	Elapsed time.Duration
	ETA     time.Duration
}

// Options control a single Run.
type Options struct {
	// RootPath scopes generated statements and snapshot exports.
	RootPath string
	// Reset purges the graph and vector stores before the first document.
	Reset bool
	// Progress, when set, is called every 10th document.
	Progress func(Progress)
}

// Importer runs imports. It holds no per-run state and may be reused.
type Importer struct {
	graph    GraphStore
	synth    Synthesizer
	index    DocumentIndexer
	read     ReadFunc
	recorder RunRecorder
	log      *logger.Logger
	now      func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithReader replaces vault.Read as the document reader.
func WithReader(fn ReadFunc) Option { return func(im *Importer) { im.read = fn } }

// WithRecorder persists every finished run.
func WithRecorder(r RunRecorder) Option { return func(im *Importer) { im.recorder = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(im *Importer) { im.now = now } }

// New returns an Importer. index may be nil to skip the embedding pass.
func New(graph GraphStore, synth Synthesizer, index DocumentIndexer, log *logger.Logger, opts ...Option) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	im := &Importer{
		graph: graph,
		synth: synth,
		index: index,
		read:  vault.Read,
		log:   log.With("component", "importer"),
		now:   time.Now,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Run imports docs in order. Per-document failures are recorded in the
// returned Run and never stop the batch. A missing prompt role, a failed
// reset or a failed emptiness check aborts the run with an error, as does
// context cancellation; the partial Run is returned in every case.
func (im *Importer) Run(ctx context.Context, docs []vault.Document, opts Options) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		RootPath:  opts.RootPath,
		StartedAt: im.now(),
		Reset:     opts.Reset,
		Total:     len(docs),
	}
	log := im.log.With("run", run.ID)

	if opts.Reset {
		log.Info("clearing graph and vector stores")
		if err := im.graph.DeleteAll(ctx); err != nil {
			return im.finish(ctx, run, fmt.Errorf("clearing graph store: %w", err))
		}
		if im.index != nil {
			if err := im.index.Reset(ctx); err != nil {
				return im.finish(ctx, run, fmt.Errorf("resetting vector store: %w", err))
			}
		}
	}

	empty, err := im.graph.IsEmpty(ctx)
	if err != nil {
		return im.finish(ctx, run, fmt.Errorf("checking graph store: %w", err))
	}
	log.Info("starting import", "documents", len(docs), "root", opts.RootPath, "empty", empty)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			run.Cancelled = true
			return im.finish(ctx, run, err)
		}

		mode := ModeUpdate
		if i == 0 && empty {
			mode = ModeCreate
		}
		if err := im.importOne(ctx, &run, doc, mode, opts.RootPath); err != nil {
			return im.finish(ctx, run, err)
		}

		if n := i + 1; n%progressEvery == 0 {
			elapsed := im.now().Sub(run.StartedAt)
			eta := elapsed / time.Duration(n) * time.Duration(len(docs)-n)
			log.Info("import progress",
				"done", n,
				"total", len(docs),
				"percent", n*100/len(docs),
				"eta", FormatDuration(eta))
			if opts.Progress != nil {
				opts.Progress(Progress{Done: n, Total: len(docs), Elapsed: elapsed, ETA: eta})
			}
		}
	}

	if im.index != nil {
		embedStart := im.now()
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				run.Embedding = im.now().Sub(embedStart)
				run.Cancelled = true
				return im.finish(ctx, run, err)
			}
			im.embedOne(ctx, &run, i, doc)
		}
		run.Embedding = im.now().Sub(embedStart)
	}

	return im.finish(ctx, run, nil)
}

// importOne runs the graph pass for a single document. Only configuration
// errors are returned; everything else is recorded on run.
func (im *Importer) importOne(ctx context.Context, run *Run, doc vault.Document, mode Mode, root string) error {
	res := DocResult{Document: doc.ID(), Mode: mode, Status: StatusFailed}
	defer func() { run.Documents = append(run.Documents, res) }()
	log := im.log.With("document", doc.RelPath, "mode", mode)

	text, err := im.read(doc)
	if err != nil {
		im.recordFailure(run, log, doc, PhaseRead, err)
		return nil
	}

	start := im.now()
	var statements string
	if mode == ModeCreate {
		statements, err = im.synth.SynthesizeCreate(ctx, text, root, doc.ID())
	} else {
		var snapshot string
		snapshot, err = im.graph.ExportForRoot(ctx, root)
		if err == nil {
			statements, err = im.synth.SynthesizeUpdate(ctx, snapshot, text, root, doc.ID())
		}
	}
	run.Translation += im.now().Sub(start)
	if err != nil {
		im.recordFailure(run, log, doc, PhaseTranslate, err)
		if errors.Is(err, prompts.ErrMissingRole) {
			return fmt.Errorf("import aborted: %w", err)
		}
		return nil
	}

	res.Statements = countStatements(statements)
	if res.Statements == 0 {
		log.Warn("model produced no statements, skipping graph write")
	} else {
		start = im.now()
		err = im.graph.RunUpdate(ctx, statements, nil)
		run.GraphWrite += im.now().Sub(start)
		if err != nil {
			im.recordFailure(run, log, doc, PhaseGraphWrite, err)
			return nil
		}
	}

	res.Status = StatusProcessed
	run.Processed++
	log.Info("document imported", "statements", res.Statements)
	return nil
}

func (im *Importer) recordFailure(run *Run, log *logger.Logger, doc vault.Document, phase Phase, err error) {
	run.Failed++
	run.fail(doc.ID(), phase, err)
	log.Error("document failed", "phase", phase, "error", err)
}

func (im *Importer) embedOne(ctx context.Context, run *Run, i int, doc vault.Document) {
	text, err := im.read(doc)
	if err == nil {
		var tags []string
		text, tags = embeddingText(doc, text)
		var chunks int
		chunks, err = im.index.IndexDocument(ctx, doc.ID(), text, tags)
		if err == nil && i < len(run.Documents) {
			run.Documents[i].Chunks = chunks
		}
	}
	if err != nil {
		run.EmbedFailed++
		run.fail(doc.ID(), PhaseEmbedding, err)
		im.log.Error("embedding failed", "document", doc.RelPath, "error", err)
		return
	}
	run.Embedded++
}

func (im *Importer) finish(ctx context.Context, run Run, cause error) (Run, error) {
	run.FinishedAt = im.now()
	run.Elapsed = run.FinishedAt.Sub(run.StartedAt)
	im.log.Info("import finished",
		"run", run.ID,
		"processed", run.Processed,
		"failed", run.Failed,
		"embedded", run.Embedded,
		"elapsed", FormatDuration(run.Elapsed))

	if im.recorder != nil {
		// Persist even when the run was cancelled.
		if err := im.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			im.log.Warn("recording run failed", "run", run.ID, "error", err)
		}
	}
	return run, cause
}

// embeddingText strips frontmatter from Markdown notes, keeping the title,
// and returns their tags; other documents are embedded as read.
func embeddingText(doc vault.Document, text string) (string, []string) {
	if strings.ToLower(filepath.Ext(doc.Path)) != ".md" {
		return text, nil
	}
	note := vault.ParseNote(text)
	return note.EmbeddingText(), note.Tags
}

func countStatements(batch string) int {
	n := 0
	for _, line := range strings.Split(batch, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
