// Package transcript renders conversation histories as sanitized HTML
// for embedding in a web view. Assistant markdown is converted with
// goldmark and scrubbed with bluemonday, so model output can never
// inject markup into the page.
package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lowkeylab/agentloop/types"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	policy = bluemonday.UGCPolicy()
)

// Markdown converts markdown to sanitized HTML. Conversion failures
// fall back to escaped plain text.
func Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(source) + "</p>")
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// Entry is one rendered message.
type Entry struct {
	Role     string
	HTML     template.HTML
	ToolName string
	IsError  bool
}

// Render converts a history into entries ready for templating.
// Assistant and user text goes through the markdown pipeline; tool
// results are rendered as escaped preformatted text since they are
// arbitrary program output, not prose.
func Render(history []types.Message) []Entry {
	entries := make([]Entry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, renderMessage(msg))
	}
	return entries
}

func renderMessage(msg types.Message) Entry {
	entry := Entry{Role: msg.Role.String()}

	text := msg.ContentText()
	switch msg.Role {
	case types.RoleTool:
		entry.ToolName = msg.ToolName
		entry.IsError = strings.HasPrefix(text, "Tool error:")
		entry.HTML = template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	default:
		entry.HTML = Markdown(text)
	}
	return entry
}

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Entries}}
<div class="message message-{{.Role}}{{if .IsError}} message-error{{end}}">
<div class="role">{{.Role}}{{if .ToolName}} ({{.ToolName}}){{end}}</div>
{{.HTML}}
</div>
{{end}}
</body>
</html>
`))

// WritePage writes a complete standalone HTML page for a history.
func WritePage(w io.Writer, title string, history []types.Message) error {
	data := struct {
		Title   string
		Entries []Entry
	}{
		Title:   title,
		Entries: Render(history),
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}
