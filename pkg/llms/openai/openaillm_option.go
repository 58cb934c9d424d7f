package openai

import (
	"net/http"
	"os"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
)

const (
	tokenEnvVarName   = "OPENAI_API_KEY"  //nolint:gosec
	modelEnvVarName   = "OPENAI_MODEL"    //nolint:gosec
	baseURLEnvVarName = "OPENAI_BASE_URL" //nolint:gosec

	azureEndpointEnvVarName       = "AZURE_OPENAI_ENDPOINT"
	azureTokenEnvVarName          = "AZURE_OPENAI_API_KEY" //nolint:gosec
	azureChatDeploymentEnvVarName = "AZURE_OPENAI_CHAT_DEPLOYMENT_NAME"
	azureEmbedDeploymentEnvVar    = "AZURE_OPENAI_DEPLOYMENT_NAME"
	azureAPIVersionEnvVarName     = "AZURE_OPENAI_API_VERSION"
)

const (
	// DefaultAPIVersion is the Azure OpenAI API version used when none is configured.
	DefaultAPIVersion = "2024-02-01"
	// DefaultModel is the chat model used with the OpenAI provider when none is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the embedding model used when none is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"
)

type options struct {
	token          string
	model          string
	embeddingModel string
	baseURL        string
	organization   string
	provider       llms.ProviderType
	apiVersion     string
	maxRetries     int
	httpClient     *http.Client
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the API token to the client. If not set, the token
// is read from OPENAI_API_KEY, or AZURE_OPENAI_API_KEY for Azure.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the chat model to the client.
// For Azure it is the chat deployment name.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithEmbeddingModel passes the embedding model to the client.
// For Azure it is the embedding deployment name.
func WithEmbeddingModel(embeddingModel string) Option {
	return func(opts *options) {
		opts.embeddingModel = embeddingModel
	}
}

// WithBaseURL passes the base url to the client.
// For Azure it is the resource endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithAPIType passes the provider type, OPENAI or AZURE.
func WithAPIType(provider llms.ProviderType) Option {
	return func(opts *options) {
		opts.provider = provider
	}
}

// WithAPIVersion passes the Azure API version.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithMaxRetries sets the SDK retry count, 0 disables retries.
func WithMaxRetries(retries int) Option {
	return func(opts *options) {
		opts.maxRetries = retries
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		provider:   llms.ProviderOpenAI,
		maxRetries: -1,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.provider == llms.ProviderAzure {
		o.token = values.StringsCoalesce(o.token, os.Getenv(azureTokenEnvVarName))
		o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(azureEndpointEnvVarName))
		o.model = values.StringsCoalesce(o.model, os.Getenv(azureChatDeploymentEnvVarName))
		o.embeddingModel = values.StringsCoalesce(o.embeddingModel, os.Getenv(azureEmbedDeploymentEnvVar))
		o.apiVersion = values.StringsCoalesce(o.apiVersion, os.Getenv(azureAPIVersionEnvVarName), DefaultAPIVersion)
	} else {
		o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
		o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName))
		o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultModel)
		o.embeddingModel = values.StringsCoalesce(o.embeddingModel, DefaultEmbeddingModel)
	}
	return o
}
