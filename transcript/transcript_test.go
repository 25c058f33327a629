package transcript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lowkeylab/agentloop/types"
)

func TestMarkdownSanitizesScripts(t *testing.T) {
	html := string(Markdown(`hello <script>alert("xss")</script> **world**`))

	if strings.Contains(html, "<script>") {
		t.Errorf("script tag survived sanitization: %q", html)
	}
	if !strings.Contains(html, "<strong>world</strong>") {
		t.Errorf("markdown not converted: %q", html)
	}
}

func TestRenderToolResultEscaped(t *testing.T) {
	history := []types.Message{
		types.NewToolMessage("c1", "exec", "<b>not markup</b>"),
	}

	entries := Render(history)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	got := string(entries[0].HTML)
	if strings.Contains(got, "<b>") {
		t.Errorf("tool output not escaped: %q", got)
	}
	if !strings.HasPrefix(got, "<pre>") {
		t.Errorf("tool output not preformatted: %q", got)
	}
	if entries[0].ToolName != "exec" {
		t.Errorf("ToolName = %q", entries[0].ToolName)
	}
}

func TestRenderMarksToolErrors(t *testing.T) {
	history := []types.Message{
		types.NewToolMessage("c1", "exec", "Tool error: command not found"),
	}

	entries := Render(history)
	if !entries[0].IsError {
		t.Error("IsError = false, want true")
	}
}

func TestWritePage(t *testing.T) {
	history := []types.Message{
		types.NewUserMessage("what is *markdown*?"),
		types.NewAssistantMessage("It is a **formatting** language."),
	}

	var buf bytes.Buffer
	if err := WritePage(&buf, "Session terminal:1", history); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Session terminal:1") {
		t.Error("title missing")
	}
	if !strings.Contains(out, "message-user") || !strings.Contains(out, "message-assistant") {
		t.Error("role classes missing")
	}
	if !strings.Contains(out, "<strong>formatting</strong>") {
		t.Error("assistant markdown not rendered")
	}
}
