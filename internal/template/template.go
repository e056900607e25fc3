// Package template renders conversations into the single prompt string
// the generation backend expects. Rendering must be deterministic: the
// continuation loop re-renders the same conversation on every round and
// relies on identical input producing identical output.
package template

import (
	"strings"

	"github.com/modelrelay/modelrelay/internal/domain"
)

// Renderer turns a conversation into a prompt string. addGenerationPrompt
// controls whether the assistant generation cue is appended; continuation
// calls suppress it so the model resumes mid-turn instead of opening a
// fresh one.
type Renderer interface {
	Render(msgs domain.Conversation, addGenerationPrompt bool) (string, error)
}

// ChatML renders the ChatML framing used by Qwen-style instruction
// models:
//
//	<|im_start|>role
//	content<|im_end|>
//
// with the generation cue "<|im_start|>assistant\n".
type ChatML struct{}

// NewChatML creates a ChatML renderer.
func NewChatML() *ChatML {
	return &ChatML{}
}

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// Render implements Renderer. It rejects messages with unknown roles.
func (c *ChatML) Render(msgs domain.Conversation, addGenerationPrompt bool) (string, error) {
	var b strings.Builder
	for _, m := range msgs {
		if !m.Role.Valid() {
			return "", domain.ErrInvalidRequest("unknown message role " + string(m.Role)).WithParam("role")
		}
		b.WriteString(imStart)
		b.WriteString(string(m.Role))
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString(imEnd)
		b.WriteString("\n")
	}
	if addGenerationPrompt {
		b.WriteString(imStart)
		b.WriteString(string(domain.RoleAssistant))
		b.WriteString("\n")
	}
	return b.String(), nil
}
