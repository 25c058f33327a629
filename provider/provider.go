// Package provider defines the model backend abstraction. A Provider
// turns a conversation into a single model reply; the iteration engine
// layers the tool-calling loop on top.
package provider

import (
	"context"

	"github.com/lowkeylab/agentloop/types"
)

// ToolDefinition describes a callable tool to the model backend.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ChatRequest is a single model invocation.
type ChatRequest struct {
	// Model identifies the backend model, e.g. "claude-sonnet-4-5".
	Model string

	// System is the system prompt, applied outside the message history.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []types.Message

	// Tools the model may call during this invocation. Empty means
	// plain chat.
	Tools []ToolDefinition

	// MaxTokens caps the reply length. Zero lets the provider pick its
	// default.
	MaxTokens int

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64
}

// Reply is the model's response to a single ChatRequest.
type Reply struct {
	// Content is the assistant's text, possibly empty when the reply
	// is purely tool calls.
	Content string

	// ToolCalls the model requested. Empty means the reply is terminal.
	ToolCalls []types.ToolCall

	// Usage reports token consumption for this invocation.
	Usage types.Usage
}

// Provider is a model backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Chat performs one model invocation. A non-nil error means no
	// reply was produced; the caller decides whether to retry.
	Chat(ctx context.Context, req ChatRequest) (*Reply, error)
}
