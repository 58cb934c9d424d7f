// Package llmfactory provides factories and configuration for LLM model instantiation,
// supporting OpenAI, Azure OpenAI and Anthropic providers, and the embeddings model used by RAG.
package llmfactory
