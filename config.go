package agentloop

import (
	"github.com/lowkeylab/agentloop/provider"
	"github.com/lowkeylab/agentloop/store"
)

// DefaultMaxIterations is the model round-trip budget per inbound
// message.
const DefaultMaxIterations = 20

// exhaustedResponse is the terminal response when the iteration budget
// runs out without the model producing a final answer. Exhaustion is a
// defined terminal state, not an error.
const exhaustedResponse = "I'm sorry, I reached the maximum number of iterations while working on this. Let me know if you'd like me to continue."

// Config holds the required configuration for an Engine.
//
// Example:
//
//	engine, _ := agentloop.New(agentloop.Config{
//	    Provider:     anthropicprovider.New(anthropic.NewClient()),
//	    Store:        memory.New(),
//	    SystemPrompt: "You are a helpful assistant",
//	})
type Config struct {
	// Provider is the model backend (required)
	Provider provider.Provider

	// Store persists sessions (required)
	Store store.Store

	// Model is the model ID to use. Empty means the provider's default.
	Model string

	// SystemPrompt is prepended to every provider call.
	SystemPrompt string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Provider == nil {
		return newEngineError("Validate", "", ErrInvalidConfig).
			WithContext("reason", "Provider is required")
	}
	if c.Store == nil {
		return newEngineError("Validate", "", ErrInvalidConfig).
			WithContext("reason", "Store is required")
	}
	return nil
}
