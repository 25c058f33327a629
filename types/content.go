package types

import (
	"encoding/json"
	"fmt"
)

// Content is the tagged union over message content: either plain text
// or an ordered list of typed blocks. Representing the two shapes as
// distinct types lets token estimation and transcript extraction switch
// exhaustively instead of duck-typing an untyped value.
type Content interface {
	isContent()
}

// Text is plain string content.
type Text string

func (Text) isContent() {}

// Blocks is structured content: an ordered list of typed blocks.
type Blocks []ContentBlock

func (Blocks) isContent() {}

// BlockType identifies the kind of a content block.
type BlockType string

const (
	// BlockTypeText is a plain text block.
	BlockTypeText BlockType = "text"

	// BlockTypeMedia is a reference to an attachment (image, audio,
	// document). Media blocks are opaque to token estimation and are
	// never summarized.
	BlockTypeMedia BlockType = "media"
)

// ContentBlock is a single typed block within structured content.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text content (BlockTypeText).
	Text string `json:"text,omitempty"`

	// Media reference (BlockTypeMedia).
	Source *MediaSource `json:"source,omitempty"`
}

// MediaSource describes where a media block's payload lives.
type MediaSource struct {
	MediaType string `json:"media_type,omitempty"` // e.g. "image/png"
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"` // base64 payload
	Path      string `json:"path,omitempty"` // local file reference
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// MediaBlock creates a media content block.
func MediaBlock(source MediaSource) ContentBlock {
	return ContentBlock{Type: BlockTypeMedia, Source: &source}
}

// ExtractText flattens content to plain text. Text passes through;
// block lists concatenate their text blocks, dropping media blocks.
func ExtractText(c Content) string {
	switch v := c.(type) {
	case nil:
		return ""
	case Text:
		return string(v)
	case Blocks:
		var out string
		for _, b := range v {
			if b.Type == BlockTypeText {
				out += b.Text
			}
		}
		return out
	default:
		return ""
	}
}

// TruncateText shortens s to at most limit bytes without splitting a
// UTF-8 sequence, appending "..." when truncated.
func TruncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

// marshalContent encodes the union: Text as a JSON string, Blocks as a
// JSON array. Nil content encodes as an empty string.
func marshalContent(c Content) (json.RawMessage, error) {
	switch v := c.(type) {
	case nil:
		return json.Marshal("")
	case Text:
		return json.Marshal(string(v))
	case Blocks:
		return json.Marshal([]ContentBlock(v))
	default:
		return nil, fmt.Errorf("unknown content type %T", c)
	}
}

// unmarshalContent decodes the union from raw JSON: a string becomes
// Text, an array becomes Blocks. Absent or null content becomes empty
// text.
func unmarshalContent(raw json.RawMessage) (Content, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Text(""), nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return nil, err
		}
		return Blocks(blocks), nil
	default:
		return nil, fmt.Errorf("content must be a string or a block array, got %s", string(raw[0]))
	}
}
