package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelrelay/modelrelay/internal/domain"
	"github.com/modelrelay/modelrelay/internal/testutil"
)

func testParams() domain.Params {
	return domain.Params{Temperature: 0.6, MaxTokens: 128, TopP: 0.95}
}

func TestClient_GenerateReplay(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "completions")
	defer cleanup()

	c := NewClient("http://localhost:8000", "qwen2.5-7b-instruct",
		WithHTTPClient(testutil.VCRHTTPClient(r)))

	res, err := c.Generate(context.Background(),
		"<|im_start|>user\nhello<|im_end|>\n<|im_start|>assistant\n", testParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "<think>greeting</think>Hello there!" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.StopReason != domain.StopEnd {
		t.Errorf("StopReason = %q, want %q", res.StopReason, domain.StopEnd)
	}
}

func TestClient_GenerateTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("Model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(&completionResponse{
			ID: "cmpl-1",
			Choices: []choice{
				{Text: "partial", FinishReason: "length"},
			},
		})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "test-model").Generate(context.Background(), "p", testParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !res.StopReason.IsTruncated() {
		t.Errorf("StopReason = %q, want truncated", res.StopReason)
	}
}

func TestClient_GenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&completionResponse{ID: "cmpl-2"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "test-model").Generate(context.Background(), "p", testParams())
	if !domain.IsKind(err, domain.KindMalformed) {
		t.Errorf("expected malformed_response, got %v", err)
	}
}

func TestClient_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "test-model").Generate(context.Background(), "p", testParams())
	if !domain.IsKind(err, domain.KindTransient) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestClient_GenerateAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(&completionResponse{
			Choices: []choice{{Text: "ok", FinishReason: "stop"}},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m", WithAPIKey("sk-test")).Generate(context.Background(), "p", testParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}
