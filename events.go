package agentloop

import (
	"encoding/json"
	"time"
)

// State is the engine's processing state for one session.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// StateChangeEvent is emitted when a session's processing state
// changes: once entering process, once leaving it.
type StateChangeEvent struct {
	SessionKey string
	From       State
	To         State
	At         time.Time
}

// ToolEvent is emitted once per dispatched tool call, success or
// tool-level error.
type ToolEvent struct {
	SessionKey string
	CallID     string
	ToolName   string
	Arguments  json.RawMessage
	Result     string
	IsError    bool
	Duration   time.Duration
	At         time.Time
}

// EventSink receives engine observability events. Delivery is
// best-effort: the engine never blocks on or checks the outcome of a
// publish. Implementations must be safe for concurrent use.
type EventSink interface {
	PublishStateChange(event StateChangeEvent)
	PublishToolEvent(event ToolEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) PublishStateChange(StateChangeEvent) {}
func (NopSink) PublishToolEvent(ToolEvent)          {}

// LogSink writes events to a Logger.
type LogSink struct {
	Logger Logger
}

func (s LogSink) PublishStateChange(event StateChangeEvent) {
	s.Logger.Debug("state change",
		"session", event.SessionKey,
		"from", string(event.From),
		"to", string(event.To),
	)
}

func (s LogSink) PublishToolEvent(event ToolEvent) {
	if event.IsError {
		s.Logger.Warn("tool call failed",
			"session", event.SessionKey,
			"tool", event.ToolName,
			"result", event.Result,
			"duration", event.Duration,
		)
		return
	}
	s.Logger.Info("tool call",
		"session", event.SessionKey,
		"tool", event.ToolName,
		"duration", event.Duration,
	)
}
