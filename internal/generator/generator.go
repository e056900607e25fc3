// Package generator implements the bounded continuation loop: it turns
// a conversation into a complete, non-truncated response even when the
// backend enforces a per-call output token cap, by issuing follow-up
// calls and stitching the fragments into one transcript.
package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelrelay/modelrelay/internal/domain"
	"github.com/modelrelay/modelrelay/internal/template"
)

const (
	// defaultRetryBudget is the number of retries after the initial call.
	defaultRetryBudget = 3
	// defaultBackoff is the fixed delay between retry attempts.
	defaultBackoff = 2 * time.Second
	// defaultMaxRounds caps continuation rounds so a backend that always
	// reports truncation cannot loop forever.
	defaultMaxRounds = 8
)

// Service is the remote generation call the generator orchestrates.
// Implementations classify their failures with the domain error kinds;
// only transient errors are retried.
type Service interface {
	Generate(ctx context.Context, prompt string, params domain.Params) (*domain.Result, error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithRetryBudget sets how many retries follow a failed call.
func WithRetryBudget(n int) Option {
	return func(g *Generator) {
		g.retryBudget = n
	}
}

// WithBackoff sets the fixed delay between retry attempts.
func WithBackoff(d time.Duration) Option {
	return func(g *Generator) {
		g.backoff = d
	}
}

// WithMaxRounds sets the continuation round cap.
func WithMaxRounds(n int) Option {
	return func(g *Generator) {
		g.maxRounds = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// Generator drives the continuation loop against a Service.
type Generator struct {
	service     Service
	renderer    template.Renderer
	logger      *slog.Logger
	retryBudget int
	backoff     time.Duration
	maxRounds   int
}

// New creates a Generator.
func New(service Service, renderer template.Renderer, opts ...Option) *Generator {
	g := &Generator{
		service:     service,
		renderer:    renderer,
		logger:      slog.Default(),
		retryBudget: defaultRetryBudget,
		backoff:     defaultBackoff,
		maxRounds:   defaultMaxRounds,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the conversation and performs one generation call,
// retrying transient failures up to the retry budget with a fixed
// backoff. When continuation is true the generation cue is suppressed
// so the rendered prompt resumes the open assistant turn.
//
// At most retryBudget+1 service calls are made, each with the identical
// prompt; no partial state survives a failed attempt.
func (g *Generator) Generate(ctx context.Context, msgs domain.Conversation, params domain.Params, continuation bool) (*domain.Result, error) {
	prompt, err := g.renderer.Render(msgs, !continuation)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.retryBudget; attempt++ {
		res, err := g.service.Generate(ctx, prompt, params)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// Only transient failures are retried. Malformed payloads and
		// caller errors will not change on a resend.
		if !domain.IsTransient(err) {
			return nil, err
		}

		if attempt == g.retryBudget {
			break
		}

		g.logger.Warn("generation attempt failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("retry_budget", g.retryBudget),
			slog.Duration("backoff", g.backoff),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.backoff):
		}
	}

	attempts := g.retryBudget + 1
	g.logger.Error("generation failed after all attempts",
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()),
	)
	return nil, domain.ErrExhausted(attempts, lastErr)
}

// AutoGenerate produces a complete response: it calls Generate and,
// while the backend reports truncation, appends the fragment to the
// last user message and calls again with the generation cue suppressed.
//
// The input conversation is treated as a value: AutoGenerate works on a
// clone and returns the updated snapshot in Completed.Conversation. The
// snapshot's anchor holds the intermediate fragments and the final
// answer is appended as an assistant message. The caller's slice is
// never written.
//
// The conversation must contain at least one user message; the last one
// is the continuation anchor. Errors from Generate propagate without
// additional retrying, and no partial response is returned on failure.
func (g *Generator) AutoGenerate(ctx context.Context, msgs domain.Conversation, params domain.Params) (*domain.Completed, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	conv := msgs.Clone()
	anchor := conv.LastUserIndex()
	if anchor < 0 {
		return nil, domain.ErrInvalidRequest("conversation has no user message to anchor continuations")
	}

	res, err := g.Generate(ctx, conv, params, false)
	if err != nil {
		return nil, err
	}

	rounds := 1
	for res.StopReason.IsTruncated() {
		if rounds >= g.maxRounds {
			g.logger.Error("continuation round cap reached",
				slog.Int("rounds", rounds),
			)
			return nil, domain.ErrRoundLimit(rounds)
		}

		conv[anchor].Content += res.Text
		g.logger.Debug("fragment truncated, continuing",
			slog.Int("round", rounds),
			slog.Int("fragment_len", len(res.Text)),
		)

		res, err = g.Generate(ctx, conv, params, true)
		if err != nil {
			return nil, err
		}
		rounds++
	}

	transcript := conv[anchor].Content[len(msgs[anchor].Content):] + res.Text
	reasoning, final := SplitTranscript(transcript)

	// The final fragment closes the assistant turn, so the snapshot
	// carries it as an assistant message rather than growing the anchor
	// further. The snapshot stays a well-formed chat for resubmission.
	conv = append(conv, domain.Message{Role: domain.RoleAssistant, Content: final})
	return &domain.Completed{
		Transcript:   transcript,
		Reasoning:    reasoning,
		Final:        final,
		Rounds:       rounds,
		StopReason:   res.StopReason,
		Conversation: conv,
	}, nil
}
