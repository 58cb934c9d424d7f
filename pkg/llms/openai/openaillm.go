package openai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/pkg/llms", "openai")

var (
	// ErrEmptyResponse is returned when the API returned no choices or vectors.
	ErrEmptyResponse = errors.New("no response")
	// ErrMissingToken is returned when no API token is configured.
	ErrMissingToken = errors.New("missing the API key, set it in the config or environment")
	// ErrUnexpectedResponseLength is returned when the number of embeddings
	// does not match the number of inputs.
	ErrUnexpectedResponseLength = errors.New("unexpected length of response")
)

// LLM is an OpenAI or Azure OpenAI chat model.
type LLM struct {
	client         openai.Client
	provider       llms.ProviderType
	model          string
	embeddingModel string
}

var (
	_ llms.Model    = (*LLM)(nil)
	_ llms.Embedder = (*LLM)(nil)
)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := newOptions(opts...)
	if o.token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	var reqOpts []option.RequestOption
	switch o.provider {
	case llms.ProviderAzure:
		if o.baseURL == "" {
			return nil, errors.New("missing the Azure OpenAI endpoint")
		}
		if o.model == "" {
			return nil, errors.New("missing the Azure OpenAI chat deployment name")
		}
		reqOpts = append(reqOpts,
			azure.WithEndpoint(o.baseURL, o.apiVersion),
			azure.WithAPIKey(o.token),
		)
	case llms.ProviderOpenAI:
		reqOpts = append(reqOpts, option.WithAPIKey(o.token))
		if o.baseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
		}
		if o.organization != "" {
			reqOpts = append(reqOpts, option.WithOrganization(o.organization))
		}
	default:
		return nil, errors.Newf("unsupported provider: %s", o.provider)
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(o.maxRetries))
	}

	return &LLM{
		client:         openai.NewClient(reqOpts...),
		provider:       o.provider,
		model:          o.model,
		embeddingModel: o.embeddingModel,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(m.Content))
		case llms.RoleUser:
			chatMsgs = append(chatMsgs, openai.UserMessage(m.Content))
		case llms.RoleAssistant:
			chatMsgs = append(chatMsgs, openai.AssistantMessage(m.Content))
		default:
			return nil, errors.Newf("role %q not supported", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(strings.TrimSpace(opts.Model)),
		Messages: chatMsgs,
	}
	if params.Model == "" {
		params.Model = shared.ChatModel(o.model)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.User != "" {
		params.User = openai.String(opts.User)
	}
	if len(opts.Tools) > 0 {
		params.Tools = toolsFromTools(opts.Tools)
		if opts.ToolChoice != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(opts.ToolChoice),
			}
		}
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "api_error",
				"code", apiErr.StatusCode,
				"param", apiErr.Param,
				"err", apiErr.Message,
			)
		}
		return nil, errors.Wrap(err, "openai chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				llms.GenerationInfoInputTokens:  result.Usage.PromptTokens,
				llms.GenerationInfoOutputTokens: result.Usage.CompletionTokens,
				llms.GenerationInfoTotalTokens:  result.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// CreateEmbedding creates embeddings for the given input texts.
func (o *LLM) CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error) {
	if len(inputTexts) == 0 {
		return nil, nil
	}
	res, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputTexts,
		},
		Model: openai.EmbeddingModel(o.embeddingModel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create openai embeddings")
	}
	if len(res.Data) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}
	if len(res.Data) != len(inputTexts) {
		return nil, errors.WithStack(ErrUnexpectedResponseLength)
	}

	embeddings := make([][]float32, len(res.Data))
	for _, d := range res.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(embeddings) {
			return nil, errors.WithStack(ErrUnexpectedResponseLength)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[idx] = vec
	}
	return embeddings, nil
}

func toolsFromTools(tools []llms.Tool) []openai.ChatCompletionToolParam {
	res := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		tool := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       t.Function.Name,
				Parameters: shared.FunctionParameters(t.Function.Parameters),
			},
		}
		if t.Function.Description != "" {
			tool.Function.Description = openai.String(t.Function.Description)
		}
		res = append(res, tool)
	}
	return res
}
