package tgi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelrelay/modelrelay/internal/domain"
)

func testParams() domain.Params {
	return domain.Params{Temperature: 0.6, MaxTokens: 128, TopP: 0.95}
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Inputs != "prompt text" {
			t.Errorf("Inputs = %q", req.Inputs)
		}
		if req.Parameters.MaxNewTokens != 128 {
			t.Errorf("MaxNewTokens = %d, want 128", req.Parameters.MaxNewTokens)
		}

		json.NewEncoder(w).Encode(&generateResponse{
			GeneratedText: "a fragment",
			Details:       &details{FinishReason: "length", GeneratedTokens: 128},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("secret"))
	res, err := c.Generate(context.Background(), "prompt text", testParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "a fragment" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.StopReason != domain.StopLength {
		t.Errorf("StopReason = %q, want %q", res.StopReason, domain.StopLength)
	}
}

func TestClient_GenerateFinishReasonMapping(t *testing.T) {
	tests := []struct {
		finish string
		want   domain.StopReason
	}{
		{"eos_token", domain.StopEnd},
		{"stop_sequence", domain.StopEnd},
		{"length", domain.StopLength},
		{"guardrail", domain.StopOther},
	}
	for _, tt := range tests {
		t.Run(tt.finish, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(&generateResponse{
					GeneratedText: "x",
					Details:       &details{FinishReason: tt.finish},
				})
			}))
			defer srv.Close()

			res, err := NewClient(srv.URL).Generate(context.Background(), "p", testParams())
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if res.StopReason != tt.want {
				t.Errorf("StopReason = %q, want %q", res.StopReason, tt.want)
			}
		})
	}
}

func TestClient_GenerateMissingFinishReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&generateResponse{GeneratedText: "x"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Generate(context.Background(), "p", testParams())
	if !domain.IsKind(err, domain.KindMalformed) {
		t.Errorf("expected malformed_response, got %v", err)
	}
}

func TestClient_GenerateStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ErrorKind
	}{
		{http.StatusInternalServerError, domain.KindTransient},
		{http.StatusServiceUnavailable, domain.KindTransient},
		{http.StatusTooManyRequests, domain.KindTransient},
		{http.StatusUnprocessableEntity, domain.KindInvalidRequest},
		{http.StatusBadRequest, domain.KindInvalidRequest},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			json.NewEncoder(w).Encode(&errorResponse{Error: "nope"})
		}))

		_, err := NewClient(srv.URL).Generate(context.Background(), "p", testParams())
		if !domain.IsKind(err, tt.want) {
			t.Errorf("status %d: expected kind %q, got %v", tt.status, tt.want, err)
		}
		srv.Close()
	}
}

func TestClient_GenerateConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL).Generate(context.Background(), "p", testParams())
	if !domain.IsKind(err, domain.KindTransient) {
		t.Errorf("expected transient error for refused connection, got %v", err)
	}
}
