package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ assistants.Callback = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback assistants.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnQueryStart(ctx context.Context, assistant assistants.IAssistant, query string) {
	for _, callback := range l.callbacks {
		callback.OnQueryStart(ctx, assistant, query)
	}
}

func (l *Fanout) OnQueryEnd(ctx context.Context, assistant assistants.IAssistant, query string, answer string) {
	for _, callback := range l.callbacks {
		callback.OnQueryEnd(ctx, assistant, query, answer)
	}
}

func (l *Fanout) OnQueryError(ctx context.Context, assistant assistants.IAssistant, query string, err error) {
	for _, callback := range l.callbacks {
		callback.OnQueryError(ctx, assistant, query, err)
	}
}

func (l *Fanout) OnModelCallStart(ctx context.Context, assistant assistants.IAssistant, messages []llms.Message, tools []llms.Tool) {
	for _, callback := range l.callbacks {
		callback.OnModelCallStart(ctx, assistant, messages, tools)
	}
}

func (l *Fanout) OnModelCallEnd(ctx context.Context, assistant assistants.IAssistant, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnModelCallEnd(ctx, assistant, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, assistant assistants.IAssistant, tool string, args string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, assistant, tool, args)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, assistant assistants.IAssistant, tool string, args string, results []mcp.ToolResult) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, assistant, tool, args, results)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, assistant assistants.IAssistant, tool string, args string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, assistant, tool, args, err)
	}
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnQueryStart(_ context.Context, assistant assistants.IAssistant, query string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Query Start: %s\n", assistant.Name())
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Input: %s\n", query)
	}
}

func (l *Printer) OnQueryEnd(_ context.Context, assistant assistants.IAssistant, _ string, answer string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Query End: %s\n", assistant.Name())
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", answer)
	}
}

func (l *Printer) OnQueryError(_ context.Context, assistant assistants.IAssistant, _ string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Query Error: %s: %s\n", assistant.Name(), err.Error())
}

func (l *Printer) OnModelCallStart(_ context.Context, assistant assistants.IAssistant, messages []llms.Message, tools []llms.Tool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Model Call: %s: %d messages, %d tools\n", assistant.ProviderName(), len(messages), len(tools))
}

func (l *Printer) OnModelCallEnd(_ context.Context, assistant assistants.IAssistant, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	choice := resp.FirstChoice()
	if choice == nil {
		fmt.Fprintf(l.Out, "Model Call End: %s: no choices\n", assistant.ProviderName())
		return
	}
	fmt.Fprintf(l.Out, "Model Call End: %s: %s\n", assistant.ProviderName(), choice.StopReason)
}

func (l *Printer) OnToolStart(_ context.Context, _ assistants.IAssistant, tool string, args string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Input: %s\n", args)
	}
}

func (l *Printer) OnToolEnd(_ context.Context, _ assistants.IAssistant, tool string, _ string, results []mcp.ToolResult) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool)
	if l.Mode == ModeVerbose {
		for _, r := range results {
			fmt.Fprintf(l.Out, "Output: %s\n", r.Text)
		}
	}
}

func (l *Printer) OnToolError(_ context.Context, _ assistants.IAssistant, tool string, _ string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool, err.Error())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnQueryStart(ctx context.Context, assistant assistants.IAssistant, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_start",
		"assistant", assistant.Name(),
		"query", slices.StringUpto(query, 128),
	)
}

func (l *PackageLogger) OnQueryEnd(ctx context.Context, assistant assistants.IAssistant, _ string, answer string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_end",
		"assistant", assistant.Name(),
		"answer", slices.StringUpto(answer, 128),
	)
}

func (l *PackageLogger) OnQueryError(ctx context.Context, assistant assistants.IAssistant, _ string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "query_error",
		"assistant", assistant.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnModelCallStart(ctx context.Context, assistant assistants.IAssistant, messages []llms.Message, tools []llms.Tool) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"assistant", assistant.Name(),
		"provider", assistant.ProviderName(),
		"messages", len(messages),
		"tools", len(tools),
	)
}

func (l *PackageLogger) OnModelCallEnd(ctx context.Context, assistant assistants.IAssistant, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"assistant", assistant.Name(),
		"provider", assistant.ProviderName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, assistant assistants.IAssistant, tool string, args string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"assistant", assistant.Name(),
		"tool", tool,
		"input", args,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, assistant assistants.IAssistant, tool string, _ string, results []mcp.ToolResult) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"assistant", assistant.Name(),
		"tool", tool,
		"results", len(results),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, assistant assistants.IAssistant, tool string, _ string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"assistant", assistant.Name(),
		"tool", tool,
		"err", err.Error(),
	)
}
