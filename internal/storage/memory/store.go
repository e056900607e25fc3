// Package memory is an in-memory implementation of storage.Store, used
// in tests and when persistence is disabled.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/modelrelay/modelrelay/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu          sync.RWMutex
	completions []*storage.Completion
	evaluations []*storage.Evaluation
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) SaveCompletion(ctx context.Context, c *storage.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.completions = append(s.completions, &cp)
	return nil
}

func (s *Store) ListCompletions(ctx context.Context, limit int) ([]*storage.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	// Newest first.
	out := make([]*storage.Completion, 0, limit)
	for i := len(s.completions) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.completions[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) SaveEvaluation(ctx context.Context, e *storage.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.evaluations = append(s.evaluations, &cp)
	return nil
}

// Evaluations returns stored evaluations, oldest first.
func (s *Store) Evaluations() []*storage.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Evaluation, len(s.evaluations))
	copy(out, s.evaluations)
	return out
}

func (s *Store) Close() error {
	return nil
}
