// Package rag provides the retrieval pipeline: documents are chunked,
// embedded and stored in a vector store, and searched by a query.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "rag")

const (
	// DefaultCollection is the collection of ingested documents
	DefaultCollection = "genie_text_metadata"
	// DefaultTopK is the default number of search results
	DefaultTopK = 5
	// DefaultChunkSize is the default size of a document chunk, in characters
	DefaultChunkSize = 500
)

// Document is a stored text chunk
type Document struct {
	ID       string         `json:"id" yaml:"id"`
	Text     string         `json:"document" yaml:"document"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Result is a search hit
type Result struct {
	Document `yaml:",inline"`
	// Distance is the cosine distance to the query, lower is closer
	Distance float64 `json:"distance" yaml:"distance"`
}

// VectorStore stores documents with their embeddings
type VectorStore interface {
	// Reset deletes all documents of the collection
	Reset(ctx context.Context, collection string) error
	// Upsert stores the documents with their embeddings
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error
	// Query returns up to topK documents closest to the embedding
	Query(ctx context.Context, collection string, embedding []float32, topK int) ([]Result, error)
	// Close releases the resources
	Close() error
}

// Retriever embeds texts and queries the vector store
type Retriever struct {
	embedder   llms.Embedder
	store      VectorStore
	collection string
}

// NewRetriever returns Retriever for the collection,
// DefaultCollection is used if empty.
func NewRetriever(embedder llms.Embedder, store VectorStore, collection string) *Retriever {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
	}
}

// Collection returns the collection name
func (r *Retriever) Collection() string {
	return r.collection
}

// Ingest replaces the collection with the chunks,
// chunk IDs are `chunk_<n>`.
func (r *Retriever) Ingest(ctx context.Context, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := r.embedder.CreateEmbedding(ctx, chunks)
	if err != nil {
		return 0, errors.WithMessage(err, "failed to create embeddings")
	}
	if len(embeddings) != len(chunks) {
		return 0, errors.Newf("unexpected number of embeddings: %d, expected %d", len(embeddings), len(chunks))
	}

	docs := make([]Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = Document{
			ID:       fmt.Sprintf("chunk_%d", i),
			Text:     chunk,
			Metadata: map[string]any{"chunk_id": i},
		}
	}

	if err = r.store.Reset(ctx, r.collection); err != nil {
		return 0, err
	}
	if err = r.store.Upsert(ctx, r.collection, docs, embeddings); err != nil {
		return 0, err
	}

	metricskey.StatsRAGDocumentsIngested.IncrCounter(float64(len(docs)), r.collection)
	logger.ContextKV(ctx, xlog.INFO, "status", "ingested", "collection", r.collection, "count", len(docs))
	return len(docs), nil
}

// Search returns up to topK documents relevant to the query,
// DefaultTopK is used if topK is not positive.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	defer metricskey.PerfRAGSearch.MeasureSince(time.Now(), r.collection)

	embeddings, err := r.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to embed query")
	}
	if len(embeddings) != 1 {
		return nil, errors.Newf("unexpected number of embeddings: %d", len(embeddings))
	}

	res, err := r.store.Query(ctx, r.collection, embeddings[0], topK)
	if err != nil {
		return nil, err
	}
	logger.ContextKV(ctx, xlog.DEBUG, "collection", r.collection, "top_k", topK, "results", len(res))
	return res, nil
}

// Close closes the store
func (r *Retriever) Close() error {
	return r.store.Close()
}

// Chunk splits the text into chunks of up to size characters,
// DefaultChunkSize is used if size is not positive.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	var res []string
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		res = append(res, string(runes[i:end]))
	}
	return res
}
