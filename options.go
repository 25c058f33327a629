package agentloop

import (
	"github.com/lowkeylab/agentloop/tool"
)

// Option is a functional option for configuring an Engine
type Option func(*engineOptions) error

// engineOptions collects everything the options set.
type engineOptions struct {
	tools         []tool.Tool
	registry      *tool.Registry
	maxIterations int
	maxTokens     int
	temperature   *float64
	compactor     compactor
	logger        Logger
	sink          EventSink
}

// WithTools registers tools with the engine
func WithTools(tools ...tool.Tool) Option {
	return func(o *engineOptions) error {
		o.tools = append(o.tools, tools...)
		return nil
	}
}

// WithRegistry uses an existing tool registry instead of building one
// from WithTools. The registry may be shared across engines.
func WithRegistry(registry *tool.Registry) Option {
	return func(o *engineOptions) error {
		o.registry = registry
		return nil
	}
}

// WithMaxIterations sets the model round-trip budget per inbound
// message. Default: 20
func WithMaxIterations(n int) Option {
	return func(o *engineOptions) error {
		if n <= 0 {
			return newEngineError("WithMaxIterations", "", ErrInvalidConfig).
				WithContext("max_iterations", n)
		}
		o.maxIterations = n
		return nil
	}
}

// WithMaxTokens sets the maximum number of tokens to generate per
// provider call. Zero means the provider's default.
func WithMaxTokens(n int) Option {
	return func(o *engineOptions) error {
		if n < 0 {
			return newEngineError("WithMaxTokens", "", ErrInvalidConfig).
				WithContext("max_tokens", n)
		}
		o.maxTokens = n
		return nil
	}
}

// WithTemperature sets the temperature for sampling (0.0 to 1.0)
func WithTemperature(t float64) Option {
	return func(o *engineOptions) error {
		if t < 0 || t > 1 {
			return newEngineError("WithTemperature", "", ErrInvalidConfig).
				WithContext("temperature", t)
		}
		o.temperature = &t
		return nil
	}
}

// WithCompaction enables automatic history compaction
func WithCompaction(c compactor) Option {
	return func(o *engineOptions) error {
		o.compactor = c
		return nil
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *engineOptions) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithEventSink sets the observability sink. Defaults to discarding
// events.
func WithEventSink(sink EventSink) Option {
	return func(o *engineOptions) error {
		if sink != nil {
			o.sink = sink
		}
		return nil
	}
}
