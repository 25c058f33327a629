package agentloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lowkeylab/agentloop/provider"
	"github.com/lowkeylab/agentloop/store"
	"github.com/lowkeylab/agentloop/tool"
	"github.com/lowkeylab/agentloop/types"
)

// compactor shrinks a history when it grows too large.
// *compaction.Compactor satisfies it.
type compactor interface {
	Needs(history []types.Message) bool
	Compact(ctx context.Context, history []types.Message) []types.Message
}

// Inbound is one message arriving from a channel.
type Inbound struct {
	// SessionKey scopes the conversation, e.g. "telegram:123456".
	SessionKey string

	// Content is the user's message: plain text or blocks with media.
	Content types.Content
}

// Outbound is the terminal response for one Inbound.
type Outbound struct {
	SessionKey string

	// Content is the assistant's final text.
	Content string

	// Iterations is how many provider calls resolving this message took.
	Iterations int

	// Exhausted is true when the iteration budget ran out and Content
	// is the fixed fallback response.
	Exhausted bool

	// Usage is the summed token usage across all provider calls.
	Usage types.Usage
}

// sessionSemaphore is a per-session mutex using a buffered channel, so
// acquisition can respect context cancellation.
type sessionSemaphore struct {
	ch chan struct{}
}

func newSessionSemaphore() *sessionSemaphore {
	s := &sessionSemaphore{ch: make(chan struct{}, 1)}
	s.ch <- struct{}{} // initially unlocked
	return s
}

// Engine drives the tool-calling loop: provider call, tool dispatch,
// feed results back, repeat until a terminal response or the iteration
// budget runs out. One session is processed by one caller at a time;
// distinct sessions run concurrently.
type Engine struct {
	provider     provider.Provider
	store        store.Store
	registry     *tool.Registry
	model        string
	systemPrompt string

	maxIterations int
	maxTokens     int
	temperature   *float64
	compactor     compactor
	logger        Logger
	sink          EventSink

	// sessionLocks holds one semaphore per session key seen by this
	// engine. Entries are never evicted, so the table grows with the
	// number of distinct keys for the engine's lifetime.
	sessionLocks sync.Map // session key → *sessionSemaphore
}

// New creates an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := engineOptions{
		maxIterations: DefaultMaxIterations,
		logger:        noopLogger{},
		sink:          NopSink{},
	}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	registry := options.registry
	if registry == nil {
		var err error
		registry, err = tool.NewRegistry(options.tools...)
		if err != nil {
			return nil, newEngineError("New", "", err)
		}
	} else if len(options.tools) > 0 {
		if err := registry.RegisterAll(options.tools); err != nil {
			return nil, newEngineError("New", "", err)
		}
	}

	return &Engine{
		provider:      cfg.Provider,
		store:         cfg.Store,
		registry:      registry,
		model:         cfg.Model,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: options.maxIterations,
		maxTokens:     options.maxTokens,
		temperature:   options.temperature,
		compactor:     options.compactor,
		logger:        options.logger,
		sink:          options.sink,
	}, nil
}

// ProcessText is Process with plain text content.
func (e *Engine) ProcessText(ctx context.Context, sessionKey, text string) (*Outbound, error) {
	return e.Process(ctx, Inbound{SessionKey: sessionKey, Content: types.Text(text)})
}

// Process resolves one inbound message to a terminal response. The
// session history is only committed with fully formed message groups:
// a provider or tool failure mid-turn leaves the persisted history as
// it was before the turn, never with an unmatched tool call.
func (e *Engine) Process(ctx context.Context, inbound Inbound) (*Outbound, error) {
	if inbound.SessionKey == "" {
		return nil, newEngineError("Process", "", ErrInvalidConfig).
			WithContext("reason", "SessionKey is required")
	}

	if !e.acquireSessionLock(ctx, inbound.SessionKey) {
		return nil, newEngineError("Process", inbound.SessionKey, ctx.Err())
	}
	defer e.releaseSessionLock(inbound.SessionKey)

	e.sink.PublishStateChange(StateChangeEvent{
		SessionKey: inbound.SessionKey,
		From:       StateIdle,
		To:         StateProcessing,
		At:         time.Now(),
	})
	defer e.sink.PublishStateChange(StateChangeEvent{
		SessionKey: inbound.SessionKey,
		From:       StateProcessing,
		To:         StateIdle,
		At:         time.Now(),
	})

	sess, err := e.store.GetOrCreate(ctx, inbound.SessionKey)
	if err != nil {
		return nil, newEngineError("Process", inbound.SessionKey, fmt.Errorf("%w: %v", ErrStore, err))
	}

	history, dropped := SanitizeHistory(sess.History)
	if dropped > 0 {
		e.logger.Warn("dropped incomplete tool groups from history",
			"session", inbound.SessionKey,
			"removed", dropped,
		)
	}

	userMsg := types.NewUserMessage("")
	userMsg.Content = inbound.Content
	history = append(history, userMsg)

	if e.compactor != nil && e.compactor.Needs(history) {
		history = e.compactor.Compact(ctx, history)
	}

	outbound, history, err := e.run(ctx, inbound.SessionKey, history)
	if err != nil {
		return nil, err
	}

	sess.History = history
	if err := e.store.Save(ctx, sess); err != nil {
		return nil, newEngineError("Process", inbound.SessionKey, fmt.Errorf("%w: %v", ErrStore, err))
	}

	return outbound, nil
}

// run executes the iteration loop over a working copy of the history
// and returns the outbound plus the new history. History grows only in
// complete groups: the assistant tool-call message together with all
// its tool results, or a terminal assistant message.
func (e *Engine) run(ctx context.Context, sessionKey string, history []types.Message) (*Outbound, []types.Message, error) {
	defs := e.registry.Definitions()

	// The provider-facing list is built once: media stays on the
	// just-added user message, older messages are stripped. Tool turns
	// are appended to it as they complete, so the inbound attachment
	// stays visible across every iteration.
	msgs := buildContext(history)

	var usage types.Usage
	iteration := 0
	terminal := ""
	exhausted := true

	for iteration < e.maxIterations {
		iteration++

		reply, err := e.provider.Chat(ctx, provider.ChatRequest{
			Model:       e.model,
			System:      e.systemPrompt,
			Messages:    msgs,
			Tools:       defs,
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
		})
		if err != nil {
			return nil, nil, newEngineError("Process", sessionKey, fmt.Errorf("%w: %v", ErrProviderCall, err))
		}
		usage = usage.Add(reply.Usage)

		if len(reply.ToolCalls) == 0 {
			terminal = reply.Content
			exhausted = false
			break
		}

		e.logger.Debug("model requested tools",
			"session", sessionKey,
			"iteration", iteration,
			"calls", len(reply.ToolCalls),
		)

		turn := make([]types.Message, 0, len(reply.ToolCalls)+1)
		turn = append(turn, types.NewAssistantMessage(reply.Content, reply.ToolCalls...))
		for _, call := range reply.ToolCalls {
			result, err := e.dispatch(ctx, sessionKey, call)
			if err != nil {
				return nil, nil, err
			}
			turn = append(turn, result)
		}
		history = append(history, turn...)
		msgs = append(msgs, turn...)
	}

	if exhausted {
		e.logger.Warn("iteration budget exhausted",
			"session", sessionKey,
			"max_iterations", e.maxIterations,
		)
		terminal = exhaustedResponse
	}

	history = append(history, types.NewAssistantMessage(terminal))

	return &Outbound{
		SessionKey: sessionKey,
		Content:    terminal,
		Iterations: iteration,
		Exhausted:  exhausted,
		Usage:      usage,
	}, history, nil
}

// buildContext renders the initial provider-facing message list from
// the loaded history. Media blocks are kept only on the newest message
// (the just-added user message) and stripped from older copies to
// bound payload size; the stripping never touches the stored history.
func buildContext(history []types.Message) []types.Message {
	if len(history) == 0 {
		return nil
	}

	out := make([]types.Message, len(history))
	for i, msg := range history[:len(history)-1] {
		out[i] = msg.StripMedia()
	}
	out[len(history)-1] = history[len(history)-1]
	return out
}

// acquireSessionLock gets or creates a per-session semaphore and
// acquires it. Returns false if the context is cancelled first.
func (e *Engine) acquireSessionLock(ctx context.Context, sessionKey string) bool {
	val, _ := e.sessionLocks.LoadOrStore(sessionKey, newSessionSemaphore())
	sem := val.(*sessionSemaphore)
	select {
	case <-sem.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) releaseSessionLock(sessionKey string) {
	if val, ok := e.sessionLocks.Load(sessionKey); ok {
		sem := val.(*sessionSemaphore)
		sem.ch <- struct{}{}
	}
}
