package compaction

import (
	"github.com/lowkeylab/agentloop/types"
)

// nonTextBlockCost is the fixed character cost assigned to a block that
// carries no summarizable text (images, documents).
const nonTextBlockCost = 50

// EstimateTokens approximates the token count of a history by summing
// the character length of all text content and dividing by
// charsPerToken. Structured content counts its text blocks by length
// and every non-text block at a flat cost. This is a rough estimate;
// accuracy only matters relative to the policy thresholds.
func EstimateTokens(history []types.Message, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}

	chars := 0
	for _, msg := range history {
		chars += contentChars(msg.Content)
	}
	return chars / charsPerToken
}

func contentChars(c types.Content) int {
	switch v := c.(type) {
	case types.Text:
		return len(v)
	case types.Blocks:
		total := 0
		for _, b := range v {
			if b.Type == types.BlockTypeText {
				total += len(b.Text)
			} else {
				total += nonTextBlockCost
			}
		}
		return total
	default:
		return 0
	}
}
