package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/x/slices"
)

var _ assistants.Callback = (*Scratchpad)(nil)

// TimeNowFn is the clock of the scratchpad entries
var TimeNowFn = time.Now

// RunStats are the counters of one query run
type RunStats struct {
	ChatID string
	RunID  string

	Duration            time.Duration
	TotalMessages       uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	QueriesSucceeded    uint32
	QueriesFailed       uint32
	ModelCalls          uint32
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
}

// Scratchpad records the events of the runs started with StartRun,
// and counts their stats.
// Runs are identified by the chat and run ID of the chat context.
type Scratchpad struct {
	mode Mode
	lock sync.Mutex
	runs map[string]*run
}

// NewScratchpad returns Scratchpad
func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		mode: mode,
		runs: make(map[string]*run),
	}
}

func runKey(chatCtx chatmodel.ChatContext) string {
	return chatCtx.GetChatID() + "." + chatCtx.RunID()
}

// StartRun starts recording the run of the chat context,
// the call is ignored if ctx has no chat context.
func (s *Scratchpad) StartRun(ctx context.Context) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	r := &run{
		key:     runKey(chatCtx),
		started: TimeNowFn(),
	}
	r.stats.ChatID = chatCtx.GetChatID()
	r.stats.RunID = chatCtx.RunID()
	r.printf("*** Run Started ***")

	s.lock.Lock()
	s.runs[r.key] = r
	s.lock.Unlock()
}

// EndRun stops recording and returns the stats and the recorded text,
// or nil if the run was not started.
func (s *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil, nil
	}

	s.lock.Lock()
	r := s.runs[runKey(chatCtx)]
	delete(s.runs, runKey(chatCtx))
	s.lock.Unlock()
	if r == nil {
		return nil, nil
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	st := r.stats
	st.Duration = TimeNowFn().Sub(r.started)

	r.printf("Queries: %d, Failed: %d", st.QueriesSucceeded+st.QueriesFailed, st.QueriesFailed)
	r.printf("Tool calls: %d, Failed: %d", st.ToolsCalls, st.ToolsCallsFailed)
	r.printf("Model calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		st.ModelCalls, st.TotalMessages,
		st.LLMBytesOut, st.LLMBytesIn,
		st.LLMInputTokens, st.LLMOutputTokens, st.LLMTotalTokens)
	r.printf("*** Run Ended. Duration: %s ***", st.Duration)

	return &st, r.w.Bytes()
}

// record calls fn with the locked run of the chat context, if started
func (s *Scratchpad) record(ctx context.Context, fn func(r *run)) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	s.lock.Lock()
	r := s.runs[runKey(chatCtx)]
	s.lock.Unlock()
	if r == nil {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	fn(r)
}

func (s *Scratchpad) OnQueryStart(ctx context.Context, assistant assistants.IAssistant, query string) {
	s.record(ctx, func(r *run) {
		r.printf("%s Query Start: %s", assistant.Name(), query)
	})
}

func (s *Scratchpad) OnQueryEnd(ctx context.Context, assistant assistants.IAssistant, _ string, answer string) {
	s.record(ctx, func(r *run) {
		r.stats.QueriesSucceeded++
		if s.mode == ModeVerbose {
			r.printf("%s Answer: %s", assistant.Name(), answer)
		}
		r.printf("%s Query End", assistant.Name())
	})
}

func (s *Scratchpad) OnQueryError(ctx context.Context, assistant assistants.IAssistant, _ string, err error) {
	s.record(ctx, func(r *run) {
		r.stats.QueriesFailed++
		r.printf("%s Query Error: %s", assistant.Name(), err.Error())
	})
}

func (s *Scratchpad) OnModelCallStart(ctx context.Context, assistant assistants.IAssistant, messages []llms.Message, tools []llms.Tool) {
	s.record(ctx, func(r *run) {
		r.stats.ModelCalls++
		r.stats.TotalMessages += uint32(len(messages))
		r.stats.LLMBytesOut += llmutils.CountMessagesContentSize(messages)

		r.printf("%s Model Call: %s, %d messages, %d tools", assistant.Name(), assistant.ProviderName(), len(messages), len(tools))
		if s.mode == ModeVerbose {
			for idx, msg := range messages {
				r.printf("%s [%d] %s: %s", assistant.Name(), idx, msg.Role, slices.StringUpto(msg.Content, 256))
			}
		}
	})
}

func (s *Scratchpad) OnModelCallEnd(ctx context.Context, assistant assistants.IAssistant, resp *llms.ContentResponse) {
	s.record(ctx, func(r *run) {
		in, out, total := llmutils.CountTokens(resp)
		r.stats.LLMBytesIn += llmutils.CountResponseContentSize(resp)
		r.stats.LLMInputTokens += uint64(in)
		r.stats.LLMOutputTokens += uint64(out)
		r.stats.LLMTotalTokens += uint64(total)

		r.printf("%s Model Call End: %d input tokens, %d output tokens, %d total tokens", assistant.Name(), in, out, total)
	})
}

func (s *Scratchpad) OnToolStart(ctx context.Context, assistant assistants.IAssistant, tool string, args string) {
	s.record(ctx, func(r *run) {
		r.stats.ToolsCalls++
		r.printf("%s Tool Start: %s %s", assistant.Name(), tool, args)
	})
}

func (s *Scratchpad) OnToolEnd(ctx context.Context, assistant assistants.IAssistant, tool string, _ string, results []mcp.ToolResult) {
	s.record(ctx, func(r *run) {
		r.stats.ToolsCallsSucceeded++
		if s.mode == ModeVerbose {
			for _, res := range results {
				r.printf("%s Tool Output: %s %s", assistant.Name(), tool, slices.StringUpto(res.Text, 256))
			}
		}
		r.printf("%s Tool End: %s", assistant.Name(), tool)
	})
}

func (s *Scratchpad) OnToolError(ctx context.Context, assistant assistants.IAssistant, tool string, _ string, err error) {
	s.record(ctx, func(r *run) {
		r.stats.ToolsCallsFailed++
		r.printf("%s Tool Error: %s %s", assistant.Name(), tool, err.Error())
	})
}

type run struct {
	key     string
	started time.Time

	lock  sync.Mutex
	w     bytes.Buffer
	stats RunStats
}

// printf appends the line prefixed with the timestamp and the run key:
// 2006-01-02 15:04:05 chatID.runID entry
func (r *run) printf(format string, args ...any) {
	fmt.Fprintf(&r.w, "%s %s ", TimeNowFn().Format(time.DateTime), r.key)
	fmt.Fprintf(&r.w, format, args...)
	r.w.WriteByte('\n')
}
