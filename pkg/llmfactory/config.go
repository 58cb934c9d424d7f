package llmfactory

import (
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// EmbeddingProvider specifies the provider used for embeddings,
	// the first OPENAI or AZURE provider is used if not set.
	EmbeddingProvider string `json:"embedding_provider,omitempty" yaml:"embedding_provider,omitempty"`
}

// ProviderConfig for the provider
type ProviderConfig struct {
	Name            string       `json:"name" yaml:"name" validate:"required"`
	Token           string       `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string       `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string     `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	OpenAI          OpenAIConfig `json:"open_ai" yaml:"open_ai"`
}

// OpenAIConfig specifies options config
type OpenAIConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|ANTHROPIC
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" validate:"required"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	// EmbeddingModel is the embedding model, or the embeddings deployment name for Azure.
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// ProviderType returns the normalized provider type
func (c *ProviderConfig) ProviderType() llms.ProviderType {
	switch t := strings.ToUpper(c.OpenAI.APIType); t {
	case "OPEN_AI":
		return llms.ProviderOpenAI
	default:
		return llms.ProviderType(t)
	}
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Validate returns error if the configuration is invalid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the configuration of the providers
// that have credentials in the environment.
// Azure OpenAI is the default provider when configured.
func FromEnv() *Config {
	cfg := new(Config)

	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "azure",
			Token:        os.Getenv("AZURE_OPENAI_API_KEY"),
			DefaultModel: os.Getenv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME"),
			OpenAI: OpenAIConfig{
				APIType:        string(llms.ProviderAzure),
				BaseURL:        endpoint,
				APIVersion:     os.Getenv("AZURE_OPENAI_API_VERSION"),
				EmbeddingModel: os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),
			},
		})
	}
	if token := os.Getenv("OPENAI_API_KEY"); token != "" {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "openai",
			Token:        token,
			DefaultModel: os.Getenv("OPENAI_MODEL"),
			OpenAI: OpenAIConfig{
				APIType: string(llms.ProviderOpenAI),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
		})
	}
	if token := os.Getenv("ANTHROPIC_API_KEY"); token != "" {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "anthropic",
			Token:        token,
			DefaultModel: os.Getenv("ANTHROPIC_MODEL"),
			OpenAI: OpenAIConfig{
				APIType: string(llms.ProviderAnthropic),
			},
		})
	}
	if len(cfg.Providers) > 0 {
		cfg.DefaultProvider = cfg.Providers[0].Name
	}
	return cfg
}
