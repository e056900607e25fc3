// Package storage defines the persistence interface for completion and
// evaluation records.
package storage

import (
	"context"
	"time"
)

// Completion is one stored generation interaction, successful or not.
type Completion struct {
	ID         string `json:"id"`
	Backend    string `json:"backend"`
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Transcript string `json:"transcript"`
	Reasoning  string `json:"reasoning,omitempty"`
	Final      string `json:"final"`
	StopReason string `json:"stop_reason"`
	Rounds     int    `json:"rounds"`
	DurationNS int64  `json:"duration_ns"`

	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TokensEstimated  bool `json:"tokens_estimated,omitempty"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Evaluation is one stored guardrail evaluation run.
type Evaluation struct {
	ID        string    `json:"id"`
	Total     int       `json:"total"`
	Blocked   int       `json:"blocked"`
	Allowed   int       `json:"allowed"`
	BlockRate float64   `json:"block_rate"`
	Report    string    `json:"report,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists completions and evaluations.
type Store interface {
	SaveCompletion(ctx context.Context, c *Completion) error
	ListCompletions(ctx context.Context, limit int) ([]*Completion, error)
	SaveEvaluation(ctx context.Context, e *Evaluation) error
	Close() error
}
