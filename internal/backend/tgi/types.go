package tgi

// generateRequest is the wire request for the /generate endpoint.
type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

// generateParameters carries the sampling settings. MaxNewTokens is the
// per-call output cap that triggers the length finish reason.
type generateParameters struct {
	Temperature  float64 `json:"temperature,omitempty"`
	TopP         float64 `json:"top_p,omitempty"`
	MaxNewTokens int     `json:"max_new_tokens"`
	Details      bool    `json:"details"`
	ReturnText   bool    `json:"return_full_text"`
}

// generateResponse is the wire response for the /generate endpoint.
type generateResponse struct {
	GeneratedText string   `json:"generated_text"`
	Details       *details `json:"details,omitempty"`
}

type details struct {
	FinishReason    string `json:"finish_reason"`
	GeneratedTokens int    `json:"generated_tokens"`
}

// errorResponse is the wire error payload.
type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}
