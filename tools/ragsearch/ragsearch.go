// Package ragsearch provides the tool that searches the document vector store.
package ragsearch

import (
	"context"

	"github.com/effective-security/mcpchat/rag"
	"github.com/effective-security/mcpchat/tools"
)

// ToolName is the name of the tool
const ToolName = "fetch_rag_data"

// Searcher searches the vector store
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]rag.Result, error)
}

// Request is the input of the tool
type Request struct {
	Query string `json:"query" jsonschema:"title=Query,description=The search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"title=Top K,description=The number of results to return,default=5"`
}

// Response is the output of the tool, lists are ordered by distance
type Response struct {
	IDs       []string         `json:"ids" yaml:"ids"`
	Documents []string         `json:"documents" yaml:"documents"`
	Metadatas []map[string]any `json:"metadatas" yaml:"metadatas"`
	Distances []float64        `json:"distances" yaml:"distances"`
}

// Tool searches ingested documents
type Tool struct {
	tools.Tool[Request, Response]

	searcher Searcher
}

// New returns the tool
func New(searcher Searcher) *Tool {
	t := &Tool{
		searcher: searcher,
	}
	t.Tool = tools.MustNew(ToolName,
		"Fetches relevant data from the document store using a semantic search query. Returns the matching documents with their IDs, metadata and distances.",
		t.run)
	return t
}

func (t *Tool) run(ctx context.Context, req *Request) (*Response, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	list, err := t.searcher.Search(ctx, req.Query, topK)
	if err != nil {
		return nil, err
	}
	return NewResponse(list), nil
}

// NewResponse returns Response for the search results
func NewResponse(list []rag.Result) *Response {
	res := &Response{
		IDs:       make([]string, 0, len(list)),
		Documents: make([]string, 0, len(list)),
		Metadatas: make([]map[string]any, 0, len(list)),
		Distances: make([]float64, 0, len(list)),
	}
	for _, r := range list {
		res.IDs = append(res.IDs, r.ID)
		res.Documents = append(res.Documents, r.Text)
		res.Metadatas = append(res.Metadatas, r.Metadata)
		res.Distances = append(res.Distances, r.Distance)
	}
	return res
}
