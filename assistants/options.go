package assistants

import (
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/pkg/llms"
)

const (
	// DefaultSystemPrompt is prepended to every query
	DefaultSystemPrompt = "You are a helpful assistant."
	// DefaultMaxIterations is the default number of model calls per query
	DefaultMaxIterations = 10
	// DefaultMaxTokens is the default number of tokens to generate
	DefaultMaxTokens = 1000
	// DefaultTemperature is the default sampling temperature
	DefaultTemperature = 0.7
)

// ToolCallPolicy defines how tool calls of one model turn are executed
type ToolCallPolicy int

const (
	// SingleCall executes only the first tool call of a turn
	SingleCall ToolCallPolicy = iota
	// MultiCall executes every tool call of a turn, in order
	MultiCall
)

// String returns the policy name
func (p ToolCallPolicy) String() string {
	if p == MultiCall {
		return "multi"
	}
	return "single"
}

// Option is a function that can be used to modify the behavior of the Assistant Config.
type Option func(*Config)

// Config of the Assistant
type Config struct {
	// Name is the name of the Assistant, used in logs and metrics.
	Name string
	// SystemPrompt is the preamble added before the user message.
	SystemPrompt string
	// MaxHistory is the number of messages retained after trimming.
	MaxHistory int
	// MaxIterations is the number of model calls allowed per query.
	MaxIterations int
	// ToolCallPolicy defines execution of several tool calls in one turn.
	ToolCallPolicy ToolCallPolicy

	// Model is the model to use in an LLM call, overrides the provider default.
	Model string
	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens int
	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature float64
	// ToolChoice is "none", "auto" or "required".
	ToolChoice string

	// Callback is the callback handler
	Callback Callback
}

// NewConfig returns Config with defaults and applied options
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:           "mcpchat",
		SystemPrompt:   DefaultSystemPrompt,
		MaxHistory:     chatmodel.DefaultMaxHistory,
		MaxIterations:  DefaultMaxIterations,
		ToolCallPolicy: SingleCall,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		ToolChoice:     llms.ToolChoiceAuto,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName sets the name of the Assistant
func WithName(name string) Option {
	return func(o *Config) {
		o.Name = name
	}
}

// WithSystemPrompt sets the preamble of each query
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompt
	}
}

// WithMaxHistory sets the number of messages retained after trimming
func WithMaxHistory(n int) Option {
	return func(o *Config) {
		o.MaxHistory = n
	}
}

// WithMaxIterations sets the number of model calls allowed per query
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		o.MaxIterations = n
	}
}

// WithToolCallPolicy sets the policy for several tool calls in one turn
func WithToolCallPolicy(p ToolCallPolicy) Option {
	return func(o *Config) {
		o.ToolCallPolicy = p
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
	}
}

// WithToolChoice is an option for LLM.Call.
func WithToolChoice(choice string) Option {
	return func(o *Config) {
		o.ToolChoice = choice
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callback Callback) Option {
	return func(o *Config) {
		o.Callback = callback
	}
}

// GetCallOptions returns LLM call options, the tools are offered only if not empty
func (c *Config) GetCallOptions(tools []llms.Tool) []llms.CallOption {
	var opts []llms.CallOption
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
		if c.ToolChoice != "" {
			opts = append(opts, llms.WithToolChoice(c.ToolChoice))
		}
	}
	return opts
}
