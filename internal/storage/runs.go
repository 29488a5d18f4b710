package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveImportRun stores run and its errors in one transaction.
func (s *Store) SaveImportRun(ctx context.Context, run ImportRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_runs (id, root_path, started_at, finished_at, total, processed, failed,
			embedded, embed_failed, translation_ms, graph_write_ms, embedding_ms, total_ms, reset, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RootPath,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total, run.Processed, run.Failed, run.Embedded, run.EmbedFailed,
		run.Translation.Milliseconds(), run.GraphWrite.Milliseconds(),
		run.Embedding.Milliseconds(), run.Elapsed.Milliseconds(),
		boolInt(run.Reset), boolInt(run.Cancelled),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for i, e := range run.Errors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_errors (run_id, seq, document, phase, message) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, e.Document, e.Phase, e.Message,
		); err != nil {
			return fmt.Errorf("inserting run error %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, root_path, started_at, finished_at, total, processed, failed,
	embedded, embed_failed, translation_ms, graph_write_ms, embedding_ms, total_ms, reset, cancelled`

// GetImportRun returns the run with the given id, including its errors.
func (s *Store) GetImportRun(ctx context.Context, id string) (ImportRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, ErrNotFound
	}
	if err != nil {
		return ImportRun{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document, phase, message FROM import_errors WHERE run_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return ImportRun{}, fmt.Errorf("querying run errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e ImportError
		if err := rows.Scan(&e.Document, &e.Phase, &e.Message); err != nil {
			return ImportRun{}, err
		}
		run.Errors = append(run.Errors, e)
	}
	return run, rows.Err()
}

// ListImportRuns returns the most recent runs, newest first, without their
// error lists.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ImportRun, error) {
	var (
		r                            ImportRun
		startedAt, finishedAt        string
		translation, graph, emb, tot int64
		reset, cancelled             int
	)
	err := row.Scan(&r.ID, &r.RootPath, &startedAt, &finishedAt,
		&r.Total, &r.Processed, &r.Failed, &r.Embedded, &r.EmbedFailed,
		&translation, &graph, &emb, &tot, &reset, &cancelled)
	if err != nil {
		return ImportRun{}, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return ImportRun{}, fmt.Errorf("parsing started_at for run %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return ImportRun{}, fmt.Errorf("parsing finished_at for run %s: %w", r.ID, err)
	}
	r.Translation = time.Duration(translation) * time.Millisecond
	r.GraphWrite = time.Duration(graph) * time.Millisecond
	r.Embedding = time.Duration(emb) * time.Millisecond
	r.Elapsed = time.Duration(tot) * time.Millisecond
	r.Reset = reset != 0
	r.Cancelled = cancelled != 0
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
