package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRelayError_Error(t *testing.T) {
	err := ErrTransient("upstream unavailable")
	want := "transient: upstream unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := ErrTransient("request failed").WithCause(errors.New("connection refused"))
	want = "transient: request failed: connection refused"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestRelayError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ErrMalformed("missing stop reason").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAsRelayError_PreservesKind(t *testing.T) {
	orig := ErrExhausted(4, nil)
	wrapped := fmt.Errorf("generate: %w", orig)

	got := AsRelayError(wrapped)
	if got.Kind != KindExhausted {
		t.Errorf("Kind = %q, want %q", got.Kind, KindExhausted)
	}
	if got.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", got.Attempts)
	}
}

func TestAsRelayError_UnknownIsTransient(t *testing.T) {
	got := AsRelayError(errors.New("EOF"))
	if got.Kind != KindTransient {
		t.Errorf("Kind = %q, want %q", got.Kind, KindTransient)
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrTransient("x")) {
		t.Error("transient error not detected")
	}
	if IsTransient(ErrMalformed("x")) {
		t.Error("malformed error must not be transient")
	}
	if IsTransient(ErrExhausted(3, nil)) {
		t.Error("exhausted error must not be transient")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  *RelayError
		want int
	}{
		{ErrInvalidRequest("bad"), http.StatusBadRequest},
		{ErrBlocked("no"), http.StatusUnprocessableEntity},
		{ErrExhausted(3, nil), http.StatusBadGateway},
		{ErrRoundLimit(8), http.StatusGatewayTimeout},
		{ErrMalformed("bad payload"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatusCode(); got != tt.want {
			t.Errorf("%s: HTTPStatusCode() = %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"temperature too high", Params{Temperature: 1.5, MaxTokens: 10, TopP: 0.9}, true},
		{"negative temperature", Params{Temperature: -0.1, MaxTokens: 10, TopP: 0.9}, true},
		{"top_p too high", Params{Temperature: 0.5, MaxTokens: 10, TopP: 1.1}, true},
		{"zero max_tokens", Params{Temperature: 0.5, MaxTokens: 0, TopP: 0.9}, true},
		{"boundary values", Params{Temperature: 1, MaxTokens: 1, TopP: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsKind(err, KindInvalidRequest) {
				t.Errorf("expected invalid_request kind, got %v", err)
			}
		})
	}
}

func TestConversationHelpers(t *testing.T) {
	conv := Conversation{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	}

	if got := conv.LastUserIndex(); got != 3 {
		t.Errorf("LastUserIndex() = %d, want 3", got)
	}

	clone := conv.Clone()
	clone[3].Content = "mutated"
	if conv[3].Content != "second" {
		t.Error("mutating the clone leaked into the original")
	}

	empty := Conversation{{Role: RoleAssistant, Content: "only"}}
	if got := empty.LastUserIndex(); got != -1 {
		t.Errorf("LastUserIndex() = %d, want -1", got)
	}
}
