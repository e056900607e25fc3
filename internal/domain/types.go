// Package domain contains the core types shared across the relay:
// conversations, generation parameters, generation results, and the
// canonical error taxonomy.
package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one the relay understands.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single role-tagged entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered sequence of messages. Role order is
// caller-defined and not validated here.
type Conversation []Message

// Clone returns a copy of the conversation. The generator works on a
// clone so the caller's slice is never mutated.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// LastUserIndex returns the index of the last user-role message, or -1
// if the conversation has none. The last user message is the anchor
// that continuation fragments are appended to.
func (c Conversation) LastUserIndex() int {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Params are the per-call generation parameters. They are immutable for
// the duration of a call; continuation rounds reuse the same values.
type Params struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float64 `json:"top_p"`
}

// DefaultParams returns the caller-facing defaults. They carry no
// special semantics beyond being a sane starting point.
func DefaultParams() Params {
	return Params{
		Temperature: 0.6,
		MaxTokens:   512,
		TopP:        0.95,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.Temperature < 0 || p.Temperature > 1 {
		return ErrInvalidRequest("temperature must be in [0,1]").WithParam("temperature")
	}
	if p.TopP < 0 || p.TopP > 1 {
		return ErrInvalidRequest("top_p must be in [0,1]").WithParam("top_p")
	}
	if p.MaxTokens <= 0 {
		return ErrInvalidRequest("max_tokens must be positive").WithParam("max_tokens")
	}
	return nil
}

// StopReason is the normalized reason the generation service stopped
// producing output.
type StopReason string

const (
	// StopEnd means generation reached a natural end.
	StopEnd StopReason = "end"
	// StopLength means output was truncated by the max-tokens cap.
	StopLength StopReason = "length"
	// StopOther covers everything else (stop sequences, filters, ...).
	StopOther StopReason = "other"
)

// IsTruncated reports whether the fragment was cut off by the per-call
// token cap and needs a continuation round.
func (s StopReason) IsTruncated() bool {
	return s == StopLength
}

// Result is a single fragment produced by the remote generation
// service.
type Result struct {
	Text       string     `json:"text"`
	StopReason StopReason `json:"stop_reason"`
}

// Usage reports token consumption for a completed response. Counts may
// be estimates depending on the configured counter.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	Estimated        bool `json:"estimated,omitempty"`
}

// Completed is a fully stitched, non-truncated response.
type Completed struct {
	// Transcript is the final anchor content concatenated with the last
	// fragment: every fragment the service produced, in order.
	Transcript string `json:"transcript"`
	// Reasoning is the content of the model's think block, empty when
	// the transcript carries no delimiters.
	Reasoning string `json:"reasoning"`
	// Final is the user-facing answer after the last think block, or
	// the whole transcript when no delimiters are present.
	Final string `json:"final"`
	// Rounds is the number of generation calls that produced the
	// transcript (1 when the first call was not truncated).
	Rounds int `json:"rounds"`
	// StopReason is the final call's stop reason; never length.
	StopReason StopReason `json:"stop_reason"`
	// Conversation is the updated snapshot: the input conversation with
	// the anchor user message grown by the intermediate fragments and
	// the final answer appended as an assistant message, so the snapshot
	// can be resubmitted as a well-formed chat. The caller's input slice
	// is left untouched.
	Conversation Conversation `json:"-"`
}
