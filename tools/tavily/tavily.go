// Package tavily provides the web search tool backed by Tavily.
package tavily

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/values"
)

const (
	// ToolName is the name of the tool
	ToolName = "web_search"
	// APIKeyEnvVarName is the environment variable with Tavily API key
	APIKeyEnvVarName = "TAVILY_API_KEY"
	// DefaultMaxResults is the number of results returned to the model
	DefaultMaxResults = 5
)

// SearchRequest is the input of the tool
type SearchRequest struct {
	Query    string `json:"query" yaml:"query" jsonschema:"title=Search Query,description=The query to search web."`
	Domains  string `json:"domains,omitempty" yaml:"domains,omitempty" jsonschema:"title=Domains,description=Optional comma-separated list of domains to limit the search to."`
	Advanced bool   `json:"advanced,omitempty" yaml:"advanced,omitempty" jsonschema:"title=Advanced,description=Set for in-depth search; slower."`
}

// SearchResult is the output of the tool
type SearchResult struct {
	Answer  string                      `json:"answer,omitempty" yaml:"answer,omitempty"`
	Results []tavilyModels.SearchResult `json:"results" yaml:"results"`
}

// Tool searches the web
type Tool struct {
	tools.Tool[SearchRequest, SearchResult]

	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxResults int
}

// New returns the tool, the API key is read from TAVILY_API_KEY if empty
func New(apiKey string) (*Tool, error) {
	apiKey = values.StringsCoalesce(apiKey, os.Getenv(APIKeyEnvVarName))
	if apiKey == "" {
		return nil, errors.Newf("%s is not set", APIKeyEnvVarName)
	}

	t := &Tool{
		apiKey:     apiKey,
		maxResults: DefaultMaxResults,
	}
	t.Tool = tools.MustNew(ToolName, "Search the web and return the results with an aggregated answer.", t.search)
	return t, nil
}

// WithBaseURL overrides Tavily API URL
func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

// WithHTTPClient overrides HTTP client
func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

// WithMaxResults limits the number of results returned to the model
func (t *Tool) WithMaxResults(n int) *Tool {
	t.maxResults = values.NumbersCoalesce(n, DefaultMaxResults)
	return t
}

func (t *Tool) search(_ context.Context, req *SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	depth := "basic"
	if req.Advanced {
		depth = "advanced"
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	resp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:          query,
		SearchDepth:    depth,
		IncludeAnswer:  true,
		IncludeDomains: splitDomains(req.Domains),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	res := &SearchResult{
		Answer:  resp.Answer,
		Results: resp.Results,
	}
	if len(res.Results) > t.maxResults {
		res.Results = res.Results[:t.maxResults]
	}
	return res, nil
}

// splitDomains returns the domains of the comma-separated list
func splitDomains(list string) []string {
	var domains []string
	for _, d := range strings.Split(list, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

// String returns the answer followed by the numbered results
func (r *SearchResult) String() string {
	var b strings.Builder
	if r.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", r.Answer)
	}
	if len(r.Results) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}
	for i, res := range r.Results {
		fmt.Fprintf(&b, "%d. %s (%s) score %.2f\n", i+1, res.Title, res.URL, res.Score)
		if content := strings.TrimSpace(res.Content); content != "" {
			fmt.Fprintf(&b, "   %s\n", content)
		}
	}
	return b.String()
}
