package llms

import (
	"context"
)

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI hosted API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure is the Azure OpenAI deployment API.
	ProviderAzure ProviderType = "AZURE"
	// ProviderAnthropic is the Anthropic messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
)

// Model is an interface chat models implement.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the model name used by default.
	GetName() string
	// GenerateContent asks the model to generate content from a sequence of
	// messages.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Embedder produces vector embeddings for texts.
type Embedder interface {
	// CreateEmbedding returns one vector per input text, in order.
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityText is basic chat generation
	CapabilityText Capability = 1 << iota
	// CapabilityFunctionCalling is tool calling
	CapabilityFunctionCalling
	// CapabilityMultiToolCalling is several tool calls per turn
	CapabilityMultiToolCalling
	// CapabilitySystemPrompt is system message support
	CapabilitySystemPrompt
	// CapabilityEmbeddings is vector embeddings
	CapabilityEmbeddings
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt |
		CapabilityEmbeddings,

	ProviderAzure: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt |
		CapabilityEmbeddings,

	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capability mask of the provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports returns true if the provider supports all bits in cap.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap == cap
}
