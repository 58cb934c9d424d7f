package assistants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/catalog"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "assistants")

// Assistant answers queries by calling the model and the remote tools
// until the model produces the final answer.
type Assistant struct {
	lock   sync.Mutex
	llm    llms.Model
	dialer mcp.Dialer
	cfg    *Config
}

var _ IAssistant = (*Assistant)(nil)

// New returns Assistant
func New(model llms.Model, dialer mcp.Dialer, opts ...Option) *Assistant {
	return &Assistant{
		llm:    model,
		dialer: dialer,
		cfg:    NewConfig(opts...),
	}
}

// Name returns the name of the Assistant.
func (a *Assistant) Name() string {
	return a.cfg.Name
}

// ProviderName returns the display name of the model provider.
func (a *Assistant) ProviderName() string {
	switch a.llm.GetProviderType() {
	case llms.ProviderAzure:
		return "Azure OpenAI"
	case llms.ProviderOpenAI:
		return "OpenAI"
	case llms.ProviderAnthropic:
		return "Anthropic"
	}
	return string(a.llm.GetProviderType())
}

// Config returns the configuration
func (a *Assistant) Config() Config {
	return *a.cfg
}

// NewConversation returns empty Conversation with the configured history size
func (a *Assistant) NewConversation() *chatmodel.Conversation {
	return chatmodel.NewConversation(a.cfg.MaxHistory)
}

// Run answers the query. The conversation is updated only on success.
// Queries are serialized.
func (a *Assistant) Run(ctx context.Context, conv *chatmodel.Conversation, query string) (string, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if conv == nil {
		return "", errors.New("conversation is required")
	}

	name := a.Name()
	defer metricskey.PerfQuery.MeasureSince(time.Now(), name)

	cb := a.cfg.Callback
	if cb != nil {
		cb.OnQueryStart(ctx, a, query)
	}

	work := conv.Clone()
	answer, done, err := a.run(ctx, work, query)
	if err != nil {
		metricskey.StatsQueryFailed.IncrCounter(1, name, reason(err))
		err = errors.WithMessagef(err, "Error during %s completion or tool execution", a.ProviderName())
		logger.ContextKV(ctx, xlog.ERROR,
			"assistant", name,
			"chat_id", chatmodel.GetChatID(ctx),
			"query", slices.StringUpto(query, 64),
			"err", err.Error(),
		)
		if cb != nil {
			cb.OnQueryError(ctx, a, query, err)
		}
		return "", err
	}

	if done {
		conv.Commit(work)
		metricskey.StatsQuerySucceeded.IncrCounter(1, name)
	}
	if cb != nil {
		cb.OnQueryEnd(ctx, a, query, answer)
	}
	return answer, nil
}

// run returns the answer, and true if the model finished the turn
func (a *Assistant) run(ctx context.Context, work *chatmodel.Conversation, query string) (string, bool, error) {
	session, err := a.dialer.Dial(ctx)
	if err != nil {
		return "", false, withKind(err, ErrToolExecution)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "close_session", "err", cerr.Error())
		}
	}()

	available, err := session.ListTools(ctx)
	if err != nil {
		return "", false, withKind(err, ErrToolExecution)
	}

	work.Append(llms.SystemMessage(a.cfg.SystemPrompt), llms.UserMessage(query))
	if dropped := work.Trim(); dropped > 0 {
		logger.ContextKV(ctx, xlog.DEBUG, "assistant", a.Name(), "status", "trimmed", "dropped", dropped)
	}

	invoked := make(map[string]struct{})
	maxIterations := a.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		candidates := catalog.Exclude(available, invoked)

		choice, err := a.callModel(ctx, work.Messages(), catalog.Convert(candidates))
		if err != nil {
			return "", false, err
		}

		switch choice.StopReason {
		case llms.StopReasonStop:
			work.Append(llms.AssistantMessage(choice.Content))
			return choice.Content, true, nil

		case llms.StopReasonToolCalls:
			calls := choice.ToolCalls
			if len(calls) == 0 {
				return "", false, withKind(errors.New("model requested tool calls without any call"), ErrModelCall)
			}
			if a.cfg.ToolCallPolicy == SingleCall {
				calls = calls[:1]
			}
			for _, call := range calls {
				result, err := a.executeTool(ctx, session, candidates, call)
				if err != nil {
					return "", false, err
				}
				work.Append(llms.SystemMessage(result))
				invoked[call.FunctionCall.Name] = struct{}{}
			}

		default:
			metricskey.StatsQueryFallback.IncrCounter(1, a.Name(), choice.StopReason)
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", a.Name(),
				"status", "unexpected_finish_reason",
				"finish_reason", choice.StopReason,
			)
			return fmt.Sprintf("No valid response from %s.", a.ProviderName()), false, nil
		}
	}

	return "", false, withKind(errors.Newf("exceeded %d model calls", maxIterations), ErrIterationLimit)
}

func (a *Assistant) callModel(ctx context.Context, messages []llms.Message, toolDefs []llms.Tool) (*llms.ContentChoice, error) {
	name := a.Name()
	modelName := a.llm.GetName()

	if cb := a.cfg.Callback; cb != nil {
		cb.OnModelCallStart(ctx, a, messages, toolDefs)
	}

	bytesSent := llmutils.CountMessagesContentSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), name, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), name, modelName)

	started := time.Now()
	resp, err := a.llm.GenerateContent(ctx, messages, a.cfg.GetCallOptions(toolDefs)...)
	metricskey.PerfModelCall.MeasureSince(started, modelName)
	if err != nil {
		return nil, withKind(err, ErrModelCall)
	}

	if cb := a.cfg.Callback; cb != nil {
		cb.OnModelCallEnd(ctx, a, resp)
	}

	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), name, modelName)
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), name, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), name, modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), name, modelName)

	choice := resp.FirstChoice()
	if choice == nil {
		return nil, withKind(errors.New("model returned no choices"), ErrModelCall)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", name,
		"model", modelName,
		"messages", len(messages),
		"tools", len(toolDefs),
		"finish_reason", choice.StopReason,
		"tool_calls", len(choice.ToolCalls),
	)
	return choice, nil
}

// executeTool runs the tool call and returns the text of its first result
func (a *Assistant) executeTool(ctx context.Context, session mcp.ToolService, candidates []catalog.ToolDescriptor, call llms.ToolCall) (string, error) {
	if call.FunctionCall == nil {
		return "", withKind(errors.New("tool call has no function"), ErrModelCall)
	}
	toolName := call.FunctionCall.Name
	toolArgs := call.FunctionCall.Arguments
	cb := a.cfg.Callback

	if _, ok := catalog.Find(candidates, toolName); !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		return "", withKind(errors.Newf("unknown tool requested: %q", toolName), ErrUnknownToolRequested)
	}

	var args map[string]any
	if err := tools.DecodeInput([]byte(toolArgs), &args); err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		err = withKind(errors.WithMessagef(err, "malformed arguments for tool %s", toolName), ErrMalformedToolArguments)
		if cb != nil {
			cb.OnToolError(ctx, a, toolName, toolArgs, err)
		}
		return "", err
	}

	if cb != nil {
		cb.OnToolStart(ctx, a, toolName, toolArgs)
	}

	started := time.Now()
	results, err := session.CallTool(ctx, toolName, args)
	metricskey.PerfToolCall.MeasureSince(started, toolName)
	if err == nil && len(results) == 0 {
		err = errors.Newf("tool %s returned no results", toolName)
	}
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		err = withKind(err, ErrToolExecution)
		if cb != nil {
			cb.OnToolError(ctx, a, toolName, toolArgs, err)
		}
		return "", err
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.Name(),
		"tool", toolName,
		"results", len(results),
		"elapsed", time.Since(started).String(),
	)
	if cb != nil {
		cb.OnToolEnd(ctx, a, toolName, toolArgs, results)
	}
	return results[0].Text, nil
}
