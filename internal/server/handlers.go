package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/domain"
	"github.com/modelrelay/modelrelay/internal/guardrail"
	"github.com/modelrelay/modelrelay/internal/storage"
)

// generateRequest is the request body for POST /v1/generate.
type generateRequest struct {
	Messages domain.Conversation `json:"messages"`
	Params   *domain.Params      `json:"params,omitempty"`
}

// generateResponse is the response body for POST /v1/generate.
type generateResponse struct {
	ID         string       `json:"id"`
	Transcript string       `json:"transcript"`
	Reasoning  string       `json:"reasoning"`
	Final      string       `json:"final"`
	Rounds     int          `json:"rounds"`
	Usage      domain.Usage `json:"usage"`
}

// errorBody is the error envelope returned on failures.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid JSON body").WithCause(err))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, domain.ErrInvalidRequest("messages must not be empty"))
		return
	}

	params := domain.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	if s.screener != nil {
		for _, m := range req.Messages {
			if m.Role != domain.RoleUser {
				continue
			}
			if err := s.screener.Check(m.Content); err != nil {
				s.logger.Warn("prompt blocked by guardrail",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				writeError(w, err)
				return
			}
		}
	}

	id := uuid.New().String()
	start := time.Now()
	completed, err := s.gen.AutoGenerate(r.Context(), req.Messages, params)
	duration := time.Since(start)

	rec := &storage.Completion{
		ID:      id,
		Backend: s.backend,
		Model:   s.model,
	}
	if anchor := req.Messages.LastUserIndex(); anchor >= 0 {
		rec.Prompt = req.Messages[anchor].Content
	}
	rec.DurationNS = duration.Nanoseconds()

	if err != nil {
		re := domain.AsRelayError(err)
		rec.ErrorKind = string(re.Kind)
		rec.ErrorMessage = re.Message
		s.record(r, rec)
		writeError(w, err)
		return
	}

	// Prompt usage covers the first round's rendered prompt: system
	// message and chat framing included, not just the user question.
	rendered, rerr := s.renderer.Render(req.Messages, true)
	if rerr != nil {
		rendered = rec.Prompt
	}
	promptTokens, promptEst := s.counter.Count(rendered)
	completionTokens, complEst := s.counter.Count(completed.Transcript)

	rec.Transcript = completed.Transcript
	rec.Reasoning = completed.Reasoning
	rec.Final = completed.Final
	rec.Rounds = completed.Rounds
	rec.StopReason = string(completed.StopReason)
	rec.PromptTokens = promptTokens
	rec.CompletionTokens = completionTokens
	rec.TokensEstimated = promptEst || complEst
	s.record(r, rec)

	writeJSON(w, http.StatusOK, &generateResponse{
		ID:         id,
		Transcript: completed.Transcript,
		Reasoning:  completed.Reasoning,
		Final:      completed.Final,
		Rounds:     completed.Rounds,
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Estimated:        promptEst || complEst,
		},
	})
}

func (s *Server) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []*storage.Completion{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, domain.ErrInvalidRequest("limit must be a positive integer").WithParam("limit"))
			return
		}
		limit = n
	}

	completions, err := s.store.ListCompletions(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list completions", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if completions == nil {
		completions = []*storage.Completion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// evaluateRequest is the request body for POST /v1/evaluations.
type evaluateRequest struct {
	Prompts []guardrail.ThreatPrompt `json:"prompts"`
}

// evaluateResponse summarizes an evaluation run.
type evaluateResponse struct {
	ID        string  `json:"id"`
	Total     int     `json:"total"`
	Blocked   int     `json:"blocked"`
	Allowed   int     `json:"allowed"`
	BlockRate float64 `json:"block_rate"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.screener == nil {
		writeError(w, domain.ErrInvalidRequest("guardrails are disabled"))
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid JSON body").WithCause(err))
		return
	}
	if len(req.Prompts) == 0 {
		writeError(w, domain.ErrInvalidRequest("prompts must not be empty"))
		return
	}

	results, err := guardrail.Evaluate(r.Context(), s.screener, req.Prompts, s.logger)
	if err != nil {
		writeError(w, err)
		return
	}

	id := uuid.New().String()
	if s.store != nil {
		eval := &storage.Evaluation{
			ID:        id,
			Total:     results.Total(),
			Blocked:   len(results.Blocked),
			Allowed:   len(results.Allowed),
			BlockRate: results.BlockRate(),
		}
		if err := s.store.SaveEvaluation(r.Context(), eval); err != nil {
			s.logger.Error("failed to save evaluation", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, &evaluateResponse{
		ID:        id,
		Total:     results.Total(),
		Blocked:   len(results.Blocked),
		Allowed:   len(results.Allowed),
		BlockRate: results.BlockRate(),
	})
}

// record persists a completion, logging instead of failing the request
// when the store is down.
func (s *Server) record(r *http.Request, rec *storage.Completion) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveCompletion(r.Context(), rec); err != nil {
		s.logger.Error("failed to save completion",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	re := domain.AsRelayError(err)

	var body errorBody
	body.Error.Kind = string(re.Kind)
	body.Error.Message = re.Message
	writeJSON(w, re.HTTPStatusCode(), &body)
}
