package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// TokenEnvVarName is the environment variable with the API key.
	TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec
	// ModelEnvVarName is the environment variable with the default model.
	ModelEnvVarName = "ANTHROPIC_MODEL"
)

// Options for the Anthropic client
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	MaxRetries int
	HTTPClient option.HTTPClient
}

// Option is a functional option for the Anthropic client.
type Option func(*Options)

// WithToken passes the Anthropic API token to the client. If not set, the token
// is read from the ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the Anthropic model to the client.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the Anthropic base URL to the client.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithMaxRetries sets the SDK retry count.
func WithMaxRetries(retries int) Option {
	return func(opts *Options) {
		opts.MaxRetries = retries
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}
