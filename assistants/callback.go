package assistants

import (
	"context"

	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
)

// IAssistant is the assistant reported to callbacks
type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// ProviderName returns the display name of the model provider.
	ProviderName() string
}

// Callback receives the events of a query
type Callback interface {
	OnQueryStart(ctx context.Context, assistant IAssistant, query string)
	OnQueryEnd(ctx context.Context, assistant IAssistant, query string, answer string)
	OnQueryError(ctx context.Context, assistant IAssistant, query string, err error)

	OnModelCallStart(ctx context.Context, assistant IAssistant, messages []llms.Message, tools []llms.Tool)
	OnModelCallEnd(ctx context.Context, assistant IAssistant, resp *llms.ContentResponse)

	OnToolStart(ctx context.Context, assistant IAssistant, tool string, args string)
	OnToolEnd(ctx context.Context, assistant IAssistant, tool string, args string, results []mcp.ToolResult)
	OnToolError(ctx context.Context, assistant IAssistant, tool string, args string, err error)
}

// NoopCallback does nothing.
type NoopCallback struct{}

var _ Callback = NoopCallback{}

func (NoopCallback) OnQueryStart(context.Context, IAssistant, string) {}
func (NoopCallback) OnQueryEnd(context.Context, IAssistant, string, string) {}
func (NoopCallback) OnQueryError(context.Context, IAssistant, string, error) {}
func (NoopCallback) OnModelCallStart(context.Context, IAssistant, []llms.Message, []llms.Tool) {}
func (NoopCallback) OnModelCallEnd(context.Context, IAssistant, *llms.ContentResponse) {}
func (NoopCallback) OnToolStart(context.Context, IAssistant, string, string) {}
func (NoopCallback) OnToolEnd(context.Context, IAssistant, string, string, []mcp.ToolResult) {}
func (NoopCallback) OnToolError(context.Context, IAssistant, string, string, error) {}
