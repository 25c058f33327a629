package agentloop

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderCall is returned when the model backend call fails
	ErrProviderCall = errors.New("provider call failed")

	// ErrStore is returned when a session store operation fails
	ErrStore = errors.New("session store operation failed")

	// ErrToolDefect is returned when a tool fails with an unexpected
	// error type; well-behaved tools report expected failures as
	// tool.ExecutionError
	ErrToolDefect = errors.New("tool raised an unexpected error")
)

// EngineError represents an error with additional context
type EngineError struct {
	Op         string         // Operation that failed
	Err        error          // Underlying error
	SessionKey string         // Session key if applicable
	Context    map[string]any // Additional context
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.SessionKey != "" {
		return fmt.Sprintf("%s (session=%s): %v", e.Op, e.SessionKey, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *EngineError) WithContext(key string, value any) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// newEngineError creates an EngineError scoped to a session.
func newEngineError(op, sessionKey string, err error) *EngineError {
	return &EngineError{
		Op:         op,
		Err:        err,
		SessionKey: sessionKey,
	}
}
