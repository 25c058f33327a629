package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lowkeylab/agentloop/tool"
	"github.com/lowkeylab/agentloop/types"
)

// dispatch runs one tool call and returns its result as a tool
// message. Expected failures (unknown tool, tool.ExecutionError)
// become "Tool error: ..." results so the model can self-correct; any
// other error is a defect in the tool and propagates. Every dispatch
// emits exactly one ToolEvent.
func (e *Engine) dispatch(ctx context.Context, sessionKey string, call types.ToolCall) (types.Message, error) {
	start := time.Now()

	result, execErr := e.execute(ctx, call)
	duration := time.Since(start)

	if execErr != nil && !tool.IsExecutionError(execErr) {
		e.logger.Error("tool defect",
			"session", sessionKey,
			"tool", call.Name,
			"error", execErr,
		)
		return types.Message{}, newEngineError("dispatch", sessionKey, fmt.Errorf("%w: %s: %v", ErrToolDefect, call.Name, execErr))
	}

	content := result
	isError := execErr != nil
	if isError {
		content = "Tool error: " + execErr.Error()
	}

	e.logger.Debug("tool dispatched",
		"session", sessionKey,
		"tool", call.Name,
		"args", argsPreview(call.Arguments),
		"error", isError,
		"duration", duration,
	)
	e.sink.PublishToolEvent(ToolEvent{
		SessionKey: sessionKey,
		CallID:     call.ID,
		ToolName:   call.Name,
		Arguments:  call.Arguments,
		Result:     content,
		IsError:    isError,
		Duration:   duration,
		At:         time.Now(),
	})

	return types.NewToolMessage(call.ID, call.Name, content), nil
}

// execute looks up and runs the tool. An unknown tool is an expected
// failure: the model may hallucinate names and should be told so.
func (e *Engine) execute(ctx context.Context, call types.ToolCall) (string, error) {
	t, ok := e.registry.Get(call.Name)
	if !ok {
		return "", tool.WrapExecution(fmt.Errorf("%w: %s", tool.ErrNotFound, call.Name))
	}
	return t.Execute(ctx, call.Arguments)
}

// argsPreview renders a short log-friendly view of tool arguments,
// preferring a recognizable field over raw JSON.
func argsPreview(args []byte) string {
	const limit = 80

	for _, key := range []string{"command", "path", "query", "url", "text"} {
		if v := gjson.GetBytes(args, key); v.Exists() {
			return types.TruncateText(key+"="+v.String(), limit)
		}
	}
	return types.TruncateText(string(args), limit)
}
