// Package compaction shrinks long conversation histories by replacing
// an older prefix with a single summary message while keeping
// assistant tool calls paired with their tool results.
package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/lowkeylab/agentloop/provider"
	"github.com/lowkeylab/agentloop/types"
)

// Logger interface for compaction logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Compactor decides when a history needs shrinking and performs the
// split-summarize-reassemble. Safe for concurrent use across sessions.
type Compactor struct {
	provider provider.Provider
	policy   Policy
	logger   Logger
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return func(c *Compactor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Compactor. The provider is used only for
// summarization; a nil provider forces the deterministic fallback
// summary.
func New(p provider.Provider, policy Policy, opts ...Option) (*Compactor, error) {
	policy.ApplyDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Compactor{
		provider: p,
		policy:   policy,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy returns the compactor's policy.
func (c *Compactor) Policy() Policy {
	return c.policy
}

// Needs reports whether the history should be compacted: never when it
// fits within the kept tail, otherwise when it exceeds the message or
// token threshold.
func (c *Compactor) Needs(history []types.Message) bool {
	if len(history) <= c.policy.KeepRecent {
		return false
	}
	if len(history) > c.policy.MessageThreshold {
		return true
	}
	return EstimateTokens(history, c.policy.CharsPerToken) > c.policy.TokenThreshold
}

// Compact replaces an older prefix of history with a single synthetic
// summary message and returns the new history. The split point starts
// keep_recent messages from the end and grows leftward when needed so
// that every tool result in the kept tail retains the assistant
// message that requested it. Summarization failures fall back to a
// deterministic local summary; Compact never fails.
//
// The input slice is not modified.
func (c *Compactor) Compact(ctx context.Context, history []types.Message) []types.Message {
	s := c.splitPoint(history)
	if s <= 0 {
		return history
	}

	prefix := history[:s]
	tail := history[s:]

	summary := c.summarize(ctx, prefix)

	c.logger.Info("history compacted",
		"before", len(history),
		"after", len(tail)+1,
		"summarized", len(prefix),
	)

	out := make([]types.Message, 0, len(tail)+1)
	out = append(out, wrapSummary(summary))
	out = append(out, tail...)
	return out
}

// splitPoint finds the boundary index: everything before it is
// summarized, everything from it on is kept. Returns 0 when there is
// nothing to summarize.
func (c *Compactor) splitPoint(history []types.Message) int {
	s0 := len(history) - c.policy.KeepRecent
	if s0 <= 0 {
		return 0
	}

	// Tool-call ids the naive tail still references.
	wanted := make(map[string]bool)
	for _, msg := range history[s0:] {
		if msg.Role == types.RoleTool && msg.ToolCallID != "" {
			wanted[msg.ToolCallID] = true
		}
	}
	if len(wanted) == 0 {
		return s0
	}

	// Grow the tail leftward to the first assistant message that made
	// one of those calls, so no tool result is orphaned. This follows
	// one hop only: a chain of dependent tool turns further left is
	// not chased.
	for i, msg := range history[:s0] {
		if msg.Role != types.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if wanted[call.ID] {
				return i
			}
		}
	}
	return s0
}

// summarize produces the summary text for a prefix, falling back to a
// deterministic local summary when the backend call fails or returns
// nothing.
func (c *Compactor) summarize(ctx context.Context, prefix []types.Message) string {
	if c.provider == nil {
		return fallbackSummary(prefix)
	}

	transcript := buildTranscript(prefix)
	req := provider.ChatRequest{
		Model:  c.policy.Model,
		System: summarySystemPrompt,
		Messages: []types.Message{
			types.NewUserMessage(fmt.Sprintf("Summarize this conversation:\n\n%s", transcript)),
		},
		MaxTokens: c.policy.SummaryMaxTokens,
	}

	reply, err := c.provider.Chat(ctx, req)
	if err != nil {
		c.logger.Warn("summarization failed, using fallback", "error", err)
		return fallbackSummary(prefix)
	}

	summary := strings.TrimSpace(reply.Content)
	if summary == "" {
		c.logger.Warn("summarization returned empty content, using fallback")
		return fallbackSummary(prefix)
	}
	return summary
}
