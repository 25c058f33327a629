package agentloop

import (
	"github.com/lowkeylab/agentloop/types"
)

// SanitizeHistory removes orphaned tool-call groups from the tail of a
// history. An orphaned group is an assistant message with tool calls
// where one or more call ids have no matching tool-result message
// following it, which can happen if the process crashed mid-turn.
// Returns the sanitized history and the number of messages removed.
func SanitizeHistory(history []types.Message) ([]types.Message, int) {
	if len(history) == 0 {
		return history, 0
	}

	original := len(history)

	// Walk backwards from the tail, trimming incomplete tool-call groups.
	for len(history) > 0 {
		last := history[len(history)-1]

		if last.Role == types.RoleTool {
			// Find the nearest preceding assistant message with tool calls.
			assistantIdx := -1
			for i := len(history) - 2; i >= 0; i-- {
				if history[i].Role == types.RoleAssistant && history[i].HasToolCalls() {
					assistantIdx = i
					break
				}
			}

			if assistantIdx < 0 {
				// Orphaned tool result with no assistant.
				history = history[:len(history)-1]
				continue
			}

			expected := make(map[string]bool)
			for _, call := range history[assistantIdx].ToolCalls {
				expected[call.ID] = true
			}
			for i := assistantIdx + 1; i < len(history); i++ {
				if history[i].Role == types.RoleTool && expected[history[i].ToolCallID] {
					delete(expected, history[i].ToolCallID)
				}
			}

			if len(expected) > 0 {
				// Incomplete group, drop it entirely.
				history = history[:assistantIdx]
				continue
			}

			break
		}

		// An assistant with tool calls at the very tail has no results
		// following it at all.
		if last.Role == types.RoleAssistant && last.HasToolCalls() {
			history = history[:len(history)-1]
			continue
		}

		break
	}

	return history, original - len(history)
}
