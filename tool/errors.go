package tool

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a tool is not registered.
var ErrNotFound = errors.New("tool not found")

// ExecutionError is an expected tool failure: bad input, a missing
// resource, a backend refusing the request. The engine reports these
// to the model as an error result and keeps the run going; any other
// error from Execute aborts the run.
type ExecutionError struct {
	// Message is shown to the model verbatim.
	Message string

	err error
}

// Error returns the message without decoration so callers can prefix
// it for the model.
func (e *ExecutionError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ExecutionError) Unwrap() error {
	return e.err
}

// Errorf creates an ExecutionError with a formatted message.
//
// Example:
//
//	func (t *weatherTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
//	    var params struct{ City string `json:"city"` }
//	    if err := json.Unmarshal(args, &params); err != nil {
//	        return "", tool.Errorf("invalid arguments: %v", err)
//	    }
//	    ...
//	}
func Errorf(format string, args ...any) error {
	return &ExecutionError{Message: fmt.Sprintf(format, args...)}
}

// WrapExecution marks err as an expected failure, preserving it as the
// cause for errors.Is/As.
func WrapExecution(err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{Message: err.Error(), err: err}
}

// IsExecutionError reports whether err is an expected tool failure.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
