package anthropic

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
)

var (
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	// ErrEmptyResponse is returned when the API returned no content.
	ErrEmptyResponse = errors.New("anthropic: no response")
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-haiku-latest"
	// DefaultMaxTokens is sent when the call does not limit tokens,
	// the messages API requires it.
	DefaultMaxTokens = 4096
)

// LLM is an Anthropic messages API model.
type LLM struct {
	client  anthropic.Client
	options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Anthropic LLM client.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		Model:      values.StringsCoalesce(os.Getenv(ModelEnvVarName), DefaultModel),
		MaxRetries: -1,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HTTPClient))
	}
	if options.MaxRetries >= 0 {
		sdkOpts = append(sdkOpts, option.WithMaxRetries(options.MaxRetries))
	}

	return &LLM{
		client:  anthropic.NewClient(sdkOpts...),
		options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
// Text and tool_use blocks of the reply are folded into a single choice,
// and the stop reason is normalized to `stop`, `tool_calls` or `length`.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	system, msgs := processMessages(messages)
	if len(msgs) == 0 {
		return nil, errors.New("anthropic: at least one user or assistant message is required")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(values.StringsCoalesce(opts.Model, o.options.Model)),
		Messages:  msgs,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		tools, err := toTools(opts.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
		switch opts.ToolChoice {
		case llms.ToolChoiceAuto:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		case llms.ToolChoiceRequired:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		case llms.ToolChoiceNone:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		}
	}

	result, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}
	if len(result.Content) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choice := &llms.ContentChoice{
		StopReason: stopReason(string(result.StopReason)),
		GenerationInfo: map[string]any{
			llms.GenerationInfoInputTokens:  result.Usage.InputTokens,
			llms.GenerationInfoOutputTokens: result.Usage.OutputTokens,
			llms.GenerationInfoTotalTokens:  result.Usage.InputTokens + result.Usage.OutputTokens,
			"ID":                            result.ID,
		},
	}

	var text strings.Builder
	for _, block := range result.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   block.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}
	choice.Content = text.String()

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func stopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return llms.StopReasonStop
	case "tool_use":
		return llms.StopReasonToolCalls
	case "max_tokens":
		return llms.StopReasonLength
	}
	return reason
}

// processMessages moves the leading system messages into the system prompt.
// Later system messages carry tool observations and are sent as user text,
// consecutive messages of the same role are merged as the API requires
// alternating turns.
func processMessages(messages []llms.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var res []anthropic.MessageParam

	leading := true
	for _, m := range messages {
		if m.Role == llms.RoleSystem && leading {
			if txt := strings.TrimSpace(m.Content); txt != "" {
				system = append(system, anthropic.TextBlockParam{Text: txt})
			}
			continue
		}
		leading = false

		role := anthropic.MessageParamRoleUser
		if m.Role == llms.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		block := anthropic.NewTextBlock(m.Content)

		if n := len(res); n > 0 && res[n-1].Role == role {
			res[n-1].Content = append(res[n-1].Content, block)
			continue
		}
		res = append(res, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{block},
		})
	}
	return system, res
}

func toTools(tools []llms.Tool) ([]anthropic.ToolUnionParam, error) {
	res := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		schema, err := encodeSchema(t.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "anthropic: tool %s schema", t.Function.Name)
		}
		tool := anthropic.ToolParam{
			Name:        t.Function.Name,
			InputSchema: schema,
		}
		if t.Function.Description != "" {
			tool.Description = anthropic.String(t.Function.Description)
		}
		res = append(res, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return res, nil
}

func encodeSchema(raw map[string]any) (anthropic.ToolInputSchemaParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if len(raw) == 0 {
		return schema, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return schema, errors.WithStack(err)
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		return schema, errors.WithStack(err)
	}
	return schema, nil
}
