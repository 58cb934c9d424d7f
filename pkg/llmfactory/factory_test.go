package llmfactory_test

import (
	"context"
	"testing"

	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFakeEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("AZURE_OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
}

func Test_Factory(t *testing.T) {
	setFakeEnv(t)

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 3)

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	llmfactory.NewEmbedder = func(cfg *llmfactory.ProviderConfig) (llms.Embedder, error) {
		return &fakeEmbedder{provider: cfg.Name, model: cfg.OpenAI.EmbeddingModel}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
		llmfactory.NewEmbedder = llmfactory.CreateEmbedder
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "openai", fm.provider)

	model, err = f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-mini", fm.model)
	assert.Equal(t, "openai", fm.provider)

	// the first known model wins
	model, err = f.ModelByName("gpt-unknown", "gpt-41-mini")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-41-mini", fm.model)
	assert.Equal(t, "azure", fm.provider)

	// cached by name
	model2, err := f.ModelByName("gpt-41-mini")
	require.NoError(t, err)
	assert.Same(t, model, model2)

	// fallback to default
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "openai", fm.provider)

	model, err = f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-sonnet-4-20250514", fm.model)
	assert.Equal(t, "anthropic", fm.provider)

	model, err = f.ModelByType("AZURE")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-deployment", fm.model)

	// OPEN_AI is an alias
	model, err = f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "openai", fm.provider)

	_, err = f.ModelByType("BEDROCK")
	assert.EqualError(t, err, "provider not found for type: BEDROCK")

	emb, err := f.Embedder()
	require.NoError(t, err)
	fe := emb.(*fakeEmbedder)
	assert.Equal(t, "azure", fe.provider)
	assert.Equal(t, "text-embedding-ada-002", fe.model)

	emb2, err := f.Embedder()
	require.NoError(t, err)
	assert.Same(t, emb, emb2)

	_, err = llmfactory.New(&llmfactory.Config{}).DefaultModel()
	assert.EqualError(t, err, "no providers configured")

	_, err = llmfactory.New(&llmfactory.Config{}).Embedder()
	assert.EqualError(t, err, "no embedding provider configured")

	_, err = llmfactory.New(&llmfactory.Config{EmbeddingProvider: "missing"}).Embedder()
	assert.EqualError(t, err, "embedding provider not found: missing")

	// first OpenAI compatible provider serves embeddings
	emb, err = llmfactory.New(&llmfactory.Config{Providers: cfg.Providers}).Embedder()
	require.NoError(t, err)
	assert.Equal(t, "openai", emb.(*fakeEmbedder).provider)

	// invalid default provider falls back to the first one
	model, err = llmfactory.New(&llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	}).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "openai", model.(*fakeLLM).provider)
}

func Test_Load(t *testing.T) {
	setFakeEnv(t)

	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)

	_, err = llmfactory.LoadConfig("testdata/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}

func Test_CreateLLM(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{
		Name:         "test-provider",
		Token:        "fakekey",
		DefaultModel: "gpt-4o",
		OpenAI: llmfactory.OpenAIConfig{
			APIType: "OPEN_AI",
		},
	}

	model, err := llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())
	assert.Equal(t, "gpt-4o", model.GetName())

	emb, err := llmfactory.CreateEmbedder(cfg)
	require.NoError(t, err)
	require.NotNil(t, emb)

	cfg.OpenAI.APIType = "azure"
	cfg.OpenAI.BaseURL = "https://example.openai.azure.com"
	cfg.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAzure, model.GetProviderType())

	emb, err = llmfactory.CreateEmbedder(cfg)
	require.NoError(t, err)
	require.NotNil(t, emb)

	cfg.OpenAI.APIType = "ANTHROPIC"
	cfg.DefaultModel = "claude-sonnet-4-20250514"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())

	_, err = llmfactory.CreateEmbedder(cfg)
	assert.EqualError(t, err, "embeddings are not supported by provider type: ANTHROPIC")

	cfg.OpenAI.APIType = "UNSUPPORTED"
	_, err = llmfactory.CreateLLM(cfg)
	assert.EqualError(t, err, "unsupported provider type: UNSUPPORTED")
}

func Test_FromEnv(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "azkey")
	t.Setenv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "embeddings")
	t.Setenv("AZURE_OPENAI_API_VERSION", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "antkey")

	cfg := llmfactory.FromEnv()
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "azure", cfg.DefaultProvider)
	az := cfg.Providers[0]
	assert.Equal(t, llms.ProviderAzure, az.ProviderType())
	assert.Equal(t, "azkey", az.Token)
	assert.Equal(t, "gpt-4o", az.DefaultModel)
	assert.Equal(t, "embeddings", az.OpenAI.EmbeddingModel)
	assert.Equal(t, llms.ProviderAnthropic, cfg.Providers[1].ProviderType())
	require.NoError(t, cfg.Validate())

	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg = llmfactory.FromEnv()
	assert.Empty(t, cfg.Providers)
	assert.Empty(t, cfg.DefaultProvider)
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

type fakeEmbedder struct {
	provider string
	model    string
}

func (f *fakeEmbedder) CreateEmbedding(context.Context, []string) ([][]float32, error) {
	return nil, nil
}
