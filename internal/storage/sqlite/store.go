// Package sqlite is the SQLite implementation of storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modelrelay/modelrelay/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (and if needed creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS completions (
			id TEXT PRIMARY KEY,
			backend TEXT NOT NULL,
			model TEXT,
			prompt TEXT NOT NULL,
			transcript TEXT,
			reasoning TEXT,
			final TEXT,
			stop_reason TEXT,
			rounds INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER,
			prompt_tokens INTEGER,
			completion_tokens INTEGER,
			tokens_estimated INTEGER NOT NULL DEFAULT 0,
			error_kind TEXT,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_created_at ON completions(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			id TEXT PRIMARY KEY,
			total INTEGER NOT NULL,
			blocked INTEGER NOT NULL,
			allowed INTEGER NOT NULL,
			block_rate REAL NOT NULL,
			report TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// SaveCompletion stores a completion record.
func (s *Store) SaveCompletion(ctx context.Context, c *storage.Completion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (
			id, backend, model, prompt, transcript, reasoning, final,
			stop_reason, rounds, duration_ns, prompt_tokens,
			completion_tokens, tokens_estimated, error_kind, error_message,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Backend, c.Model, c.Prompt, c.Transcript, c.Reasoning,
		c.Final, c.StopReason, c.Rounds, c.DurationNS, c.PromptTokens,
		c.CompletionTokens, boolToInt(c.TokensEstimated), c.ErrorKind,
		c.ErrorMessage, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

// ListCompletions returns the most recent completions, newest first.
func (s *Store) ListCompletions(ctx context.Context, limit int) ([]*storage.Completion, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backend, model, prompt, transcript, reasoning, final,
			stop_reason, rounds, duration_ns, prompt_tokens,
			completion_tokens, tokens_estimated, error_kind, error_message,
			created_at
		FROM completions
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var out []*storage.Completion
	for rows.Next() {
		var c storage.Completion
		var estimated int
		if err := rows.Scan(
			&c.ID, &c.Backend, &c.Model, &c.Prompt, &c.Transcript,
			&c.Reasoning, &c.Final, &c.StopReason, &c.Rounds, &c.DurationNS,
			&c.PromptTokens, &c.CompletionTokens, &estimated, &c.ErrorKind,
			&c.ErrorMessage, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.TokensEstimated = estimated != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}

// SaveEvaluation stores an evaluation run.
func (s *Store) SaveEvaluation(ctx context.Context, e *storage.Evaluation) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, total, blocked, allowed, block_rate, report, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Total, e.Blocked, e.Allowed, e.BlockRate,
		e.Report, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
