package compaction

import (
	"fmt"
)

// Default policy values.
const (
	DefaultMessageThreshold = 50    // compact past 50 messages
	DefaultTokenThreshold   = 30000 // or past ~30K estimated tokens
	DefaultKeepRecent       = 10    // always keep last 10 messages
	DefaultCharsPerToken    = 4     // rough characters-per-token ratio
	DefaultSummaryMaxTokens = 1024  // cap on the summary response
)

// Policy holds compaction configuration. Immutable once handed to a
// Compactor.
type Policy struct {
	// MessageThreshold is the history length past which compaction
	// triggers.
	// Default: 50
	MessageThreshold int

	// TokenThreshold is the estimated token count past which compaction
	// triggers.
	// Default: 30000
	TokenThreshold int

	// KeepRecent is the minimum number of recent messages to always
	// preserve. These messages are never summarized.
	// Default: 10
	KeepRecent int

	// CharsPerToken is the character-to-token ratio used by the
	// estimator.
	// Default: 4
	CharsPerToken int

	// SummaryMaxTokens caps the summarization response length.
	// Default: 1024
	SummaryMaxTokens int

	// Model is the backend model used for summarization. Empty means
	// the provider's default.
	Model string
}

// DefaultPolicy returns a Policy with the default values.
func DefaultPolicy() Policy {
	return Policy{
		MessageThreshold: DefaultMessageThreshold,
		TokenThreshold:   DefaultTokenThreshold,
		KeepRecent:       DefaultKeepRecent,
		CharsPerToken:    DefaultCharsPerToken,
		SummaryMaxTokens: DefaultSummaryMaxTokens,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (p *Policy) ApplyDefaults() {
	if p.MessageThreshold == 0 {
		p.MessageThreshold = DefaultMessageThreshold
	}
	if p.TokenThreshold == 0 {
		p.TokenThreshold = DefaultTokenThreshold
	}
	if p.KeepRecent == 0 {
		p.KeepRecent = DefaultKeepRecent
	}
	if p.CharsPerToken == 0 {
		p.CharsPerToken = DefaultCharsPerToken
	}
	if p.SummaryMaxTokens == 0 {
		p.SummaryMaxTokens = DefaultSummaryMaxTokens
	}
}

// Validate validates the policy and returns an error if invalid.
func (p *Policy) Validate() error {
	if p.MessageThreshold <= 0 {
		return fmt.Errorf("%w: message_threshold must be positive, got %d", ErrInvalidPolicy, p.MessageThreshold)
	}
	if p.TokenThreshold <= 0 {
		return fmt.Errorf("%w: token_threshold must be positive, got %d", ErrInvalidPolicy, p.TokenThreshold)
	}
	if p.KeepRecent <= 0 {
		return fmt.Errorf("%w: keep_recent must be positive, got %d", ErrInvalidPolicy, p.KeepRecent)
	}
	if p.CharsPerToken <= 0 {
		return fmt.Errorf("%w: chars_per_token must be positive, got %d", ErrInvalidPolicy, p.CharsPerToken)
	}
	if p.SummaryMaxTokens <= 0 {
		return fmt.Errorf("%w: summary_max_tokens must be positive, got %d", ErrInvalidPolicy, p.SummaryMaxTokens)
	}
	return nil
}
