package compaction

import (
	"fmt"
	"strings"

	"github.com/lowkeylab/agentloop/types"
)

// summarySystemPrompt is the fixed system instruction for the
// summarization call.
const summarySystemPrompt = `You are summarizing a conversation between a user and an AI assistant.
Summarize the conversation concisely. Note any decisions made, important information shared, the user's goal, and any pending items.
Keep the summary under 500 words.`

// transcriptTextLimit caps how much of each message's text appears in
// the transcript sent to the summarizer.
const transcriptTextLimit = 500

// fallbackUserMessages is how many trailing user messages the
// deterministic fallback summary quotes.
const fallbackUserMessages = 3

// fallbackTextLimit caps each quoted user message in the fallback
// summary.
const fallbackTextLimit = 100

// buildTranscript renders a history prefix as plain text for the
// summarizer, one line per message, joined with blank lines. Non-text
// blocks are dropped; they are not summarizable.
func buildTranscript(prefix []types.Message) string {
	lines := make([]string, 0, len(prefix))
	for _, msg := range prefix {
		text := types.TruncateText(msg.ContentText(), transcriptTextLimit)
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role.String(), text))
	}
	return strings.Join(lines, "\n\n")
}

// fallbackSummary builds a deterministic summary when the backend call
// fails: message counts by role plus the last few user messages. Never
// fails.
func fallbackSummary(prefix []types.Message) string {
	var users, assistants, tools int
	var userTexts []string

	for _, msg := range prefix {
		switch msg.Role {
		case types.RoleUser:
			users++
			userTexts = append(userTexts, types.TruncateText(msg.ContentText(), fallbackTextLimit))
		case types.RoleAssistant:
			assistants++
		case types.RoleTool:
			tools++
		}
	}

	if len(userTexts) > fallbackUserMessages {
		userTexts = userTexts[len(userTexts)-fallbackUserMessages:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Earlier conversation: %d user, %d assistant, %d tool messages.", users, assistants, tools)
	if len(userTexts) > 0 {
		b.WriteString(" Recent user messages:")
		for _, text := range userTexts {
			b.WriteString("\n- ")
			b.WriteString(text)
		}
	}
	return b.String()
}

// wrapSummary wraps the summary text into the synthetic user message
// that replaces the compacted prefix.
func wrapSummary(summary string) types.Message {
	content := fmt.Sprintf("[Previous conversation summary]\n%s\n[End of summary - continuing conversation]", summary)
	return types.NewUserMessage(content)
}
