package compaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lowkeylab/agentloop/provider"
	"github.com/lowkeylab/agentloop/types"
)

// stubProvider returns a canned reply or error and records calls.
type stubProvider struct {
	reply *provider.Reply
	err   error
	calls int
}

func (s *stubProvider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.Reply, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func plainHistory(n int) []types.Message {
	history := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			history = append(history, types.NewUserMessage(fmt.Sprintf("user message %d", i)))
		} else {
			history = append(history, types.NewAssistantMessage(fmt.Sprintf("assistant message %d", i)))
		}
	}
	return history
}

func newTestCompactor(t *testing.T, p provider.Provider, policy Policy) *Compactor {
	t.Helper()
	c, err := New(p, policy)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestEstimateTokens(t *testing.T) {
	history := []types.Message{
		types.NewUserMessage(strings.Repeat("x", 400)),
	}
	if got := EstimateTokens(history, 4); got != 100 {
		t.Errorf("EstimateTokens() = %d, want 100", got)
	}
}

func TestEstimateTokensBlocks(t *testing.T) {
	msg := types.NewUserMessage("")
	msg.Content = types.Blocks{
		types.TextBlock(strings.Repeat("a", 100)),
		types.MediaBlock(types.MediaSource{MediaType: "image/png", Data: "eA=="}),
		types.TextBlock(strings.Repeat("b", 50)),
	}
	// 100 + 50 text chars + 50 for the media block = 200 chars.
	if got := EstimateTokens([]types.Message{msg}, 4); got != 50 {
		t.Errorf("EstimateTokens() = %d, want 50", got)
	}
}

func TestNeedsMessageThreshold(t *testing.T) {
	c := newTestCompactor(t, nil, Policy{MessageThreshold: 10, KeepRecent: 5})

	if c.Needs(plainHistory(10)) {
		t.Error("Needs(10 messages) = true, want false")
	}
	if !c.Needs(plainHistory(11)) {
		t.Error("Needs(11 messages) = false, want true")
	}
}

func TestNeedsTokenThreshold(t *testing.T) {
	c := newTestCompactor(t, nil, Policy{TokenThreshold: 100, KeepRecent: 2, CharsPerToken: 4})

	history := []types.Message{
		types.NewUserMessage(strings.Repeat("x", 300)),
		types.NewAssistantMessage(strings.Repeat("y", 300)),
		types.NewUserMessage("hi"),
	}
	// 602 chars / 4 = 150 tokens > 100.
	if !c.Needs(history) {
		t.Error("Needs() = false, want true on token threshold")
	}
}

func TestNeedsShortHistory(t *testing.T) {
	// Histories within the kept tail never trigger, regardless of size.
	c := newTestCompactor(t, nil, Policy{MessageThreshold: 2, TokenThreshold: 1, KeepRecent: 10})

	history := []types.Message{
		types.NewUserMessage(strings.Repeat("x", 10000)),
		types.NewAssistantMessage(strings.Repeat("y", 10000)),
	}
	if c.Needs(history) {
		t.Error("Needs() = true for history within KeepRecent")
	}
}

func TestCompactSummarizes(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "they discussed the weather"}}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	history := plainHistory(20)
	got := c.Compact(context.Background(), history)

	if len(got) != 6 {
		t.Fatalf("len(Compact()) = %d, want 6", len(got))
	}
	if got[0].Role != types.RoleUser {
		t.Errorf("summary role = %q, want user", got[0].Role)
	}
	text := got[0].ContentText()
	if !strings.HasPrefix(text, "[Previous conversation summary]\n") {
		t.Errorf("summary missing header: %q", text)
	}
	if !strings.Contains(text, "they discussed the weather") {
		t.Errorf("summary missing provider content: %q", text)
	}
	if !strings.HasSuffix(text, "\n[End of summary - continuing conversation]") {
		t.Errorf("summary missing footer: %q", text)
	}
	if stub.calls != 1 {
		t.Errorf("provider calls = %d, want 1", stub.calls)
	}

	// Tail is the original last 5 messages, order preserved.
	for i, msg := range got[1:] {
		if msg.ID != history[15+i].ID {
			t.Errorf("tail[%d] = %q, want original history[%d]", i, msg.ID, 15+i)
		}
	}
}

func TestCompactShortHistoryUnchanged(t *testing.T) {
	c := newTestCompactor(t, nil, Policy{KeepRecent: 10})

	history := plainHistory(5)
	got := c.Compact(context.Background(), history)

	if len(got) != 5 {
		t.Fatalf("len(Compact()) = %d, want 5", len(got))
	}
	for i := range got {
		if got[i].ID != history[i].ID {
			t.Errorf("message %d changed", i)
		}
	}
}

func TestCompactIdempotent(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "summary"}}
	c := newTestCompactor(t, stub, Policy{MessageThreshold: 10, KeepRecent: 5})

	compacted := c.Compact(context.Background(), plainHistory(20))

	// Output fits in keep_recent + 1, so compaction does not re-trigger.
	if c.Needs(compacted) {
		t.Error("Needs(compacted) = true, want false")
	}
	again := c.Compact(context.Background(), compacted)
	if len(again) != len(compacted) {
		t.Errorf("second Compact changed length: %d -> %d", len(compacted), len(again))
	}
}

func TestCompactBoundaryAdjustment(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "summary"}}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	// 20 plain messages, then an assistant tool call and its result,
	// then 4 more plain messages. A naive split lands between the
	// assistant and the tool result.
	history := plainHistory(20)
	history = append(history,
		types.NewAssistantMessage("let me check", types.ToolCall{
			ID:        "call_x",
			Name:      "lookup",
			Arguments: json.RawMessage(`{}`),
		}),
		types.NewToolMessage("call_x", "lookup", "found it"),
	)
	history = append(history, plainHistory(4)...)

	got := c.Compact(context.Background(), history)

	assertNoOrphans(t, got)

	// The assistant message must be in the kept tail: summary + the
	// assistant turn and everything after it.
	if len(got) != 7 {
		t.Fatalf("len(Compact()) = %d, want 7", len(got))
	}
	if !got[1].HasToolCalls() || got[1].ToolCalls[0].ID != "call_x" {
		t.Errorf("tail does not start with the tool-calling assistant message: %+v", got[1])
	}
	if got[2].ToolCallID != "call_x" {
		t.Errorf("tool result missing from tail: %+v", got[2])
	}
}

func TestCompactTailPreservation(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "summary"}}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	history := plainHistory(30)
	got := c.Compact(context.Background(), history)

	tail := got[1:]
	if len(tail) < 5 {
		t.Fatalf("tail shorter than KeepRecent: %d", len(tail))
	}
	offset := len(history) - len(tail)
	for i := range tail {
		if tail[i].ID != history[offset+i].ID {
			t.Errorf("tail[%d] reordered or replaced", i)
		}
	}
}

func TestCompactFallbackOnProviderError(t *testing.T) {
	stub := &stubProvider{err: errors.New("backend down")}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	history := plainHistory(20)
	got := c.Compact(context.Background(), history)

	if len(got) != 6 {
		t.Fatalf("len(Compact()) = %d, want 6", len(got))
	}
	// Prefix is the first 15 messages: users at even indices.
	text := got[0].ContentText()
	if !strings.Contains(text, "8 user, 7 assistant, 0 tool messages") {
		t.Errorf("fallback summary missing role counts: %q", text)
	}
	if !strings.Contains(text, "user message 14") {
		t.Errorf("fallback summary missing recent user text: %q", text)
	}
	if strings.Contains(text, "user message 16") {
		t.Errorf("fallback summary quotes tail messages: %q", text)
	}
}

func TestCompactFallbackOnEmptyReply(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "   "}}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	got := c.Compact(context.Background(), plainHistory(20))
	if !strings.Contains(got[0].ContentText(), "Earlier conversation:") {
		t.Errorf("expected fallback summary, got %q", got[0].ContentText())
	}
}

func TestCompactDoesNotMutateInput(t *testing.T) {
	stub := &stubProvider{reply: &provider.Reply{Content: "summary"}}
	c := newTestCompactor(t, stub, Policy{KeepRecent: 5})

	history := plainHistory(20)
	ids := make([]string, len(history))
	for i, msg := range history {
		ids[i] = msg.ID
	}

	c.Compact(context.Background(), history)

	for i, msg := range history {
		if msg.ID != ids[i] {
			t.Errorf("input history[%d] mutated", i)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"defaults", DefaultPolicy(), false},
		{"negative keep_recent", Policy{MessageThreshold: 10, TokenThreshold: 100, KeepRecent: -1, CharsPerToken: 4, SummaryMaxTokens: 100}, true},
		{"zero chars_per_token", Policy{MessageThreshold: 10, TokenThreshold: 100, KeepRecent: 5, CharsPerToken: 0, SummaryMaxTokens: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Validate() error = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

// assertNoOrphans fails if any tool message lacks a preceding assistant
// message carrying the matching tool call.
func assertNoOrphans(t *testing.T, history []types.Message) {
	t.Helper()
	seen := make(map[string]bool)
	for i, msg := range history {
		for _, call := range msg.ToolCalls {
			seen[call.ID] = true
		}
		if msg.Role == types.RoleTool && !seen[msg.ToolCallID] {
			t.Errorf("orphaned tool message at index %d (tool_call_id %q)", i, msg.ToolCallID)
		}
	}
}
