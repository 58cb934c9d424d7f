package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/tavily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, results int, domains *[]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req tavilyModels.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if domains != nil {
			*domains = req.IncludeDomains
		}

		resp := tavily.SearchResult{}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}
		for i := 0; i < results; i++ {
			resp.Results = append(resp.Results, tavilyModels.SearchResult{
				Title:   "Result about " + req.Query,
				URL:     "https://example.com/" + req.SearchDepth,
				Content: " Paris is the capital. ",
				Score:   0.9,
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Setenv(tavily.APIKeyEnvVarName, "")
	_, err := tavily.New("")
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")

	t.Setenv(tavily.APIKeyEnvVarName, "envkey")
	tool, err := tavily.New("")
	require.NoError(t, err)
	assert.Equal(t, tavily.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "Search the web")

	params := tool.Parameters()
	assert.Equal(t, []any{"query"}, params["required"])
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "advanced")
	require.Contains(t, props, "domains")
	assert.Equal(t, "string", props["domains"].(map[string]any)["type"])
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	var domains []string
	srv := newServer(t, 3, &domains)

	tool, err := tavily.New("testkey")
	require.NoError(t, err)
	tool.WithBaseURL(srv.URL).WithHTTPClient(srv.Client()).WithMaxResults(2)

	_, err = tool.Call(ctx, "plain string")
	assert.ErrorIs(t, err, tools.ErrFailedUnmarshalInput)

	_, err = tool.Call(ctx, `{"query":"  "}`)
	assert.EqualError(t, err, "invalid request: empty query")

	res, err := tool.Run(ctx, &tavily.SearchRequest{Query: "capital of France"})
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	require.Len(t, res.Results, 2)
	assert.Empty(t, domains)

	_, err = tool.Call(ctx, `{"query":"capital of France","domains":" wikipedia.org, ,britannica.com "}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"wikipedia.org", "britannica.com"}, domains)

	text, err := tool.Call(ctx, `{"query":"capital of France","advanced":true}`)
	require.NoError(t, err)
	assert.Equal(t, `Answer: Paris
1. Result about capital of France (https://example.com/advanced) score 0.90
   Paris is the capital.
2. Result about capital of France (https://example.com/advanced) score 0.90
   Paris is the capital.
`, text)
}

func TestSearchResult_String(t *testing.T) {
	assert.Equal(t, "No results found.\n", (&tavily.SearchResult{}).String())
	assert.Equal(t, "Answer: 42\nNo results found.\n", (&tavily.SearchResult{Answer: "42"}).String())
}
