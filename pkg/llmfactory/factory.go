package llmfactory

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/anthropic"
	"github.com/effective-security/mcpchat/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// NewEmbedder is a wrapper for CreateEmbedder to allow for overriding the default implementation.
var NewEmbedder = CreateEmbedder

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type:
	// OPENAI, AZURE, ANTHROPIC
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// Embedder returns the embeddings model.
	Embedder() (llms.Embedder, error)
}

// Load returns factory with configuration from file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byType          map[llms.ProviderType]llms.Model
	byName          map[string]llms.Model
	embedder        llms.Embedder
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[llms.ProviderType]llms.Model),
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		f.defaultProvider = f.findProvider(cfg.DefaultProvider)
	}
	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

func (f *factory) findProvider(name string) *ProviderConfig {
	for _, provider := range f.cfg.Providers {
		if provider.Name == name {
			return provider
		}
	}
	return nil
}

// CreateLLM returns the chat model of the provider
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	switch provType := cfg.ProviderType(); provType {
	case llms.ProviderOpenAI, llms.ProviderAzure:
		return openai.New(openAIOptions(cfg, cfg.FindModel(preferredModels...))...)
	case llms.ProviderAnthropic:
		var opts []anthropic.Option
		if model := cfg.FindModel(preferredModels...); model != "" {
			opts = append(opts, anthropic.WithModel(model))
		}
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return anthropic.New(opts...)
	default:
		return nil, errors.Newf("unsupported provider type: %s", provType)
	}
}

// CreateEmbedder returns the embeddings model of the provider
func CreateEmbedder(cfg *ProviderConfig) (llms.Embedder, error) {
	switch provType := cfg.ProviderType(); provType {
	case llms.ProviderOpenAI, llms.ProviderAzure:
		opts := openAIOptions(cfg, cfg.DefaultModel)
		if cfg.OpenAI.EmbeddingModel != "" {
			opts = append(opts, openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel))
		}
		return openai.New(opts...)
	default:
		return nil, errors.Newf("embeddings are not supported by provider type: %s", provType)
	}
}

func openAIOptions(cfg *ProviderConfig, model string) []openai.Option {
	opts := []openai.Option{openai.WithAPIType(cfg.ProviderType())}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.APIVersion != "" {
		opts = append(opts, openai.WithAPIVersion(cfg.OpenAI.APIVersion))
	}
	if cfg.OpenAI.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
	}
	return opts
}

// DefaultModel returns the model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	pt := (&ProviderConfig{OpenAI: OpenAIConfig{APIType: providerType}}).ProviderType()
	if client, ok := f.byType[pt]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.ProviderType() == pt {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", pt,
				"version", cfg.OpenAI.APIVersion,
				"name", cfg.Name)

			f.byType[pt] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if cfg.FindModel(modelName) != modelName {
				continue
			}
			model, err := NewLLM(cfg, modelNames...)
			if err != nil {
				logger.KV(xlog.ERROR,
					"reason", "NewLLM",
					"type", cfg.OpenAI.APIType,
					"models", modelNames,
					"err", err.Error(),
				)
				continue
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.OpenAI.APIType,
				"name", cfg.Name,
				"model", modelName)

			f.byName[modelName] = model
			return model, nil
		}
	}
	return f.DefaultModel()
}

// Embedder returns the embeddings model of the configured embedding provider
func (f *factory) Embedder() (llms.Embedder, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.embedder != nil {
		return f.embedder, nil
	}

	var provider *ProviderConfig
	if f.cfg.EmbeddingProvider != "" {
		provider = f.findProvider(f.cfg.EmbeddingProvider)
		if provider == nil {
			return nil, errors.Newf("embedding provider not found: %s", f.cfg.EmbeddingProvider)
		}
	} else {
		for _, cfg := range f.cfg.Providers {
			if cfg.ProviderType().Supports(llms.CapabilityEmbeddings) {
				provider = cfg
				break
			}
		}
		if provider == nil {
			return nil, errors.New("no embedding provider configured")
		}
	}

	embedder, err := NewEmbedder(provider)
	if err != nil {
		return nil, err
	}
	f.embedder = embedder
	return embedder, nil
}
