package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallsResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{
		"index": 0,
		"finish_reason": "tool_calls",
		"message": {
			"role": "assistant",
			"content": null,
			"tool_calls": [{
				"id": "call_1",
				"type": "function",
				"function": {"name": "add", "arguments": "{\"a\":1,\"b\":2}"}
			}]
		}
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const stopResponse = `{
	"id": "chatcmpl-2",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "The answer is 3."}
	}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 6, "total_tokens": 26}
}`

type recorded struct {
	path  string
	query string
	auth  string
	key   string
	body  map[string]any
}

func newServer(t *testing.T, status int, response string, rec *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		rec.key = r.Header.Get("Api-Key")
		rec.body = map[string]any{}
		_ = json.Unmarshal(data, &rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_MissingToken(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := openai.New()
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	t.Setenv("AZURE_OPENAI_API_KEY", "")
	_, err = openai.New(openai.WithAPIType(llms.ProviderAzure))
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	_, err = openai.New(openai.WithAPIType(llms.ProviderAzure), openai.WithToken("k"))
	assert.EqualError(t, err, "missing the Azure OpenAI endpoint")

	_, err = openai.New(openai.WithAPIType("BEDROCK"), openai.WithToken("k"))
	assert.EqualError(t, err, "unsupported provider: BEDROCK")
}

func TestGenerateContent_ToolCalls(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, toolCallsResponse, rec)

	llm, err := openai.New(
		openai.WithToken("test-key"),
		openai.WithBaseURL(srv.URL+"/v1/"),
		openai.WithModel("gpt-4o-mini"),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())
	assert.Equal(t, "gpt-4o-mini", llm.GetName())

	tools := []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "add",
			Description: "Add two numbers",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"a": map[string]any{"type": "integer", "title": "a"}},
				"required":   []string{"a"},
			},
		},
	}}

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.Message{
			llms.SystemMessage("You are a helpful assistant."),
			llms.UserMessage("add 1 and 2"),
			llms.AssistantMessage("ok"),
		},
		llms.WithMaxTokens(1000),
		llms.WithTemperature(0.7),
		llms.WithTools(tools),
		llms.WithToolChoice(llms.ToolChoiceAuto),
	)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(rec.path, "/chat/completions"), rec.path)
	assert.Equal(t, "Bearer test-key", rec.auth)
	assert.Equal(t, "gpt-4o-mini", rec.body["model"])
	assert.EqualValues(t, 1000, rec.body["max_tokens"])
	assert.NotContains(t, rec.body, "max_completion_tokens")
	assert.EqualValues(t, 0.7, rec.body["temperature"])
	assert.Equal(t, "auto", rec.body["tool_choice"])
	msgs, ok := rec.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	sentTools, ok := rec.body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, sentTools, 1)
	fn := sentTools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "add", fn["name"])
	assert.Equal(t, "Add two numbers", fn["description"])

	choice := resp.FirstChoice()
	require.NotNil(t, choice)
	assert.Equal(t, llms.StopReasonToolCalls, choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "call_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "add", choice.ToolCalls[0].FunctionCall.Name)
	assert.Equal(t, `{"a":1,"b":2}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.EqualValues(t, 15, choice.GenerationInfo[llms.GenerationInfoTotalTokens])
}

func TestGenerateContent_Stop(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, stopResponse, rec)

	llm, err := openai.New(openai.WithToken("k"), openai.WithBaseURL(srv.URL+"/v1/"), openai.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.Message{llms.UserMessage("1+2?")},
		llms.WithModel("gpt-4o"),
	)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", rec.body["model"])
	assert.NotContains(t, rec.body, "tools")
	assert.NotContains(t, rec.body, "tool_choice")

	choice := resp.FirstChoice()
	require.NotNil(t, choice)
	assert.Equal(t, llms.StopReasonStop, choice.StopReason)
	assert.Equal(t, "The answer is 3.", choice.Content)
	assert.Empty(t, choice.ToolCalls)
}

func TestGenerateContent_Errors(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusBadRequest, `{"error":{"message":"bad tools","type":"invalid_request_error","param":"tools","code":null}}`, rec)

	llm, err := openai.New(openai.WithToken("k"), openai.WithBaseURL(srv.URL+"/v1/"), openai.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")

	_, err = llm.GenerateContent(context.Background(), []llms.Message{{Role: "robot", Content: "hi"}})
	assert.EqualError(t, err, `role "robot" not supported`)

	empty := newServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, &recorded{})
	llm, err = openai.New(openai.WithToken("k"), openai.WithBaseURL(empty.URL+"/v1/"), openai.WithMaxRetries(0))
	require.NoError(t, err)
	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.UserMessage("hi")})
	assert.ErrorIs(t, err, openai.ErrEmptyResponse)
}

func TestGenerateContent_Azure(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, stopResponse, rec)

	llm, err := openai.New(
		openai.WithAPIType(llms.ProviderAzure),
		openai.WithToken("azure-key"),
		openai.WithBaseURL(srv.URL),
		openai.WithModel("chat-deployment"),
		openai.WithAPIVersion("2024-02-01"),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAzure, llm.GetProviderType())

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{llms.UserMessage("hi")}, llms.WithMaxTokens(1000))
	require.NoError(t, err)
	assert.Equal(t, "The answer is 3.", resp.FirstChoice().Content)
	assert.Equal(t, "/openai/deployments/chat-deployment/chat/completions", rec.path)
	assert.Contains(t, rec.query, "api-version=2024-02-01")
	assert.Equal(t, "azure-key", rec.key)
	// 2024-02-01 accepts max_tokens only
	assert.EqualValues(t, 1000, rec.body["max_tokens"])
	assert.NotContains(t, rec.body, "max_completion_tokens")
}

func TestCreateEmbedding(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, `{
		"object": "list",
		"model": "text-embedding-3-small",
		"data": [
			{"object": "embedding", "index": 1, "embedding": [0.5, 0.25]},
			{"object": "embedding", "index": 0, "embedding": [1, 0]}
		],
		"usage": {"prompt_tokens": 2, "total_tokens": 2}
	}`, rec)

	llm, err := openai.New(openai.WithToken("k"), openai.WithBaseURL(srv.URL+"/v1/"), openai.WithMaxRetries(0))
	require.NoError(t, err)

	vecs, err := llm.CreateEmbedding(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)

	vecs, err = llm.CreateEmbedding(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rec.path, "/embeddings"), rec.path)
	assert.Equal(t, openai.DefaultEmbeddingModel, rec.body["model"])
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0.5, 0.25}, vecs[1])

	_, err = llm.CreateEmbedding(context.Background(), []string{"only one"})
	assert.ErrorIs(t, err, openai.ErrUnexpectedResponseLength)
}
