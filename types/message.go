package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role represents the message role.
type Role string

const (
	// RoleSystem represents a system message.
	RoleSystem Role = "system"

	// RoleUser represents a user message.
	RoleUser Role = "user"

	// RoleAssistant represents an assistant message.
	RoleAssistant Role = "assistant"

	// RoleTool represents a tool result message.
	RoleTool Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ToolCall is a single tool invocation requested by the assistant.
// The ID is an opaque correlation string minted by the model backend,
// unique within the emitting assistant turn. A ToolCall is immutable
// once created.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message represents a single conversation turn.
//
// Invariant: a message with RoleTool always carries a ToolCallID that
// references exactly one ToolCall emitted by a prior assistant message
// in the same history.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    Content    `json:"-"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// messageJSON mirrors Message for JSON encoding, with Content carried
// as raw JSON so both union arms round-trip.
type messageJSON struct {
	ID         string          `json:"id,omitempty"`
	Role       Role            `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// MarshalJSON encodes the message with its content union: Text encodes
// as a JSON string, Blocks as a JSON array.
func (m Message) MarshalJSON() ([]byte, error) {
	raw, err := marshalContent(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		ID:         m.ID,
		Role:       m.Role,
		Content:    raw,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		ToolName:   m.ToolName,
		CreatedAt:  m.CreatedAt,
	})
}

// UnmarshalJSON decodes the message, restoring the content union from
// either a JSON string or a JSON array of blocks.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	content, err := unmarshalContent(mj.Content)
	if err != nil {
		return err
	}
	m.ID = mj.ID
	m.Role = mj.Role
	m.Content = content
	m.ToolCalls = mj.ToolCalls
	m.ToolCallID = mj.ToolCallID
	m.ToolName = mj.ToolName
	m.CreatedAt = mj.CreatedAt
	return nil
}

// ContentText returns the plain text of the message content. For block
// content this is the concatenation of all text blocks; media blocks
// contribute nothing.
func (m Message) ContentText() string {
	return ExtractText(m.Content)
}

// HasToolCalls reports whether the message carries tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// StripMedia returns a copy of the message with media blocks removed
// from its content. Plain text content is returned unchanged. Used when
// building provider payloads where attachments are only kept on the
// newest message.
func (m Message) StripMedia() Message {
	blocks, ok := m.Content.(Blocks)
	if !ok {
		return m
	}
	kept := make(Blocks, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == BlockTypeText {
			kept = append(kept, b)
		}
	}
	m.Content = kept
	return m
}

// NewUserMessage creates a user message with plain text content.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   Text(text),
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message. Tool calls are
// optional; a terminal response carries none.
func NewAssistantMessage(text string, calls ...ToolCall) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   Text(text),
		ToolCalls: calls,
		CreatedAt: time.Now(),
	}
}

// NewToolMessage creates a tool result message linked to the tool call
// that produced it.
func NewToolMessage(callID, toolName, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleTool,
		Content:    Text(content),
		ToolCallID: callID,
		ToolName:   toolName,
		CreatedAt:  time.Now(),
	}
}

// NewSystemMessage creates a system message with plain text content.
func NewSystemMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Content:   Text(text),
		CreatedAt: time.Now(),
	}
}

// Usage contains token usage statistics reported by the model backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add combines two Usage values.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Total returns the total number of tokens (input + output).
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}
