// Package providers defines the language-completion capability the agents
// depend on, together with the concrete backends that implement it. Agents
// only see the Completer interface; which backend serves a role is wiring.
package providers

import (
	"context"
	"fmt"
)

// Message is one prior conversation turn passed to a completion call.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Tool describes one callable operation advertised to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a structured operation invocation requested by the model.
type ToolCall struct {
	Name      string
	Arguments map[string]interface{}
}

// Completion is the result of one completion call: free text plus any
// structured tool calls the model chose to make.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// CompletionRequest carries everything one completion call needs.
type CompletionRequest struct {
	SystemPrompt string
	History      []Message
	Input        string
	Tools        []Tool
}

// Completer is the language-completion capability contract. StreamComplete
// produces a finite, ordered sequence of text chunks and is not restartable.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	StreamComplete(ctx context.Context, req CompletionRequest, onChunk func(string) error) error
}

// ExternalCapabilityError reports a collaborator failure: a completion or
// ingestion call that failed or timed out. Always recoverable.
type ExternalCapabilityError struct {
	Capability string
	Err        error
}

func (e *ExternalCapabilityError) Error() string {
	return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Err)
}

func (e *ExternalCapabilityError) Unwrap() error {
	return e.Err
}
