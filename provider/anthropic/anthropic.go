// Package anthropic adapts the Anthropic Messages API to the provider
// interface.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lowkeylab/agentloop/provider"
	"github.com/lowkeylab/agentloop/types"
)

// DefaultModel is used when a request does not name one.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5)

// Provider calls the Anthropic Messages API. Safe for concurrent use.
type Provider struct {
	client anthropic.Client
}

// New creates a Provider around an existing SDK client. The client
// reads ANTHROPIC_API_KEY from the environment when constructed with
// no options.
func New(client anthropic.Client) *Provider {
	return &Provider{client: client}
}

// Chat performs one Messages API call.
func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.Reply, error) {
	params := buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	reply := &provider.Reply{
		Usage: types.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Content += b.Text
		case anthropic.ToolUseBlock:
			reply.ToolCalls = append(reply.ToolCalls, types.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: json.RawMessage(b.Input),
			})
		}
	}

	return reply, nil
}

func buildParams(req provider.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  convertMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: req.System},
		}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	return params
}

// convertMessages maps conversation messages to API message params.
// Tool results become user-role tool_result blocks; assistant tool
// calls become tool_use blocks, matching the API's wire shape.
func convertMessages(messages []types.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			// Handled via the System field.
			continue

		case types.RoleUser:
			params = append(params, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: convertContent(msg.Content),
			})

		case types.RoleAssistant:
			blocks := convertContent(msg.Content)
			for _, call := range msg.ToolCalls {
				var input any
				if len(call.Arguments) > 0 {
					_ = json.Unmarshal(call.Arguments, &input)
				}
				// The API requires a dictionary, not null.
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			params = append(params, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})

		case types.RoleTool:
			params = append(params, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewToolResultBlock(msg.ToolCallID, msg.ContentText(), isToolError(msg)),
				},
			})
		}
	}

	return params
}

func convertContent(c types.Content) []anthropic.ContentBlockParamUnion {
	switch v := c.(type) {
	case types.Text:
		if v == "" {
			return nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(string(v))}
	case types.Blocks:
		out := make([]anthropic.ContentBlockParamUnion, 0, len(v))
		for _, b := range v {
			if converted, ok := convertBlock(b); ok {
				out = append(out, converted)
			}
		}
		return out
	default:
		return nil
	}
}

func convertBlock(b types.ContentBlock) (anthropic.ContentBlockParamUnion, bool) {
	switch b.Type {
	case types.BlockTypeText:
		return anthropic.NewTextBlock(b.Text), true
	case types.BlockTypeMedia:
		if b.Source == nil {
			return anthropic.ContentBlockParamUnion{}, false
		}
		if b.Source.Data != "" {
			return anthropic.NewImageBlockBase64(b.Source.MediaType, b.Source.Data), true
		}
		if b.Source.URL != "" {
			return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: b.Source.URL}), true
		}
	}
	return anthropic.ContentBlockParamUnion{}, false
}

func isToolError(msg types.Message) bool {
	return strings.HasPrefix(msg.ContentText(), "Tool error:")
}

func convertTools(defs []provider.ToolDefinition) []anthropic.ToolUnionParam {
	unions := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if props, ok := def.InputSchema["properties"].(map[string]any); ok {
			schema.Properties = props
		}
		if req, ok := def.InputSchema["required"].([]string); ok {
			schema.Required = req
		}
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: schema,
		}
		unions = append(unions, anthropic.ToolUnionParam{OfTool: &param})
	}
	return unions
}

// IsRetryable reports whether an API error is worth retrying: rate
// limits and server-side failures.
func IsRetryable(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
}
