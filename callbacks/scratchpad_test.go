package callbacks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct{ name string }

func (a *fakeAssistant) Name() string         { return a.name }
func (a *fakeAssistant) ProviderName() string { return "OpenAI" }

func newTestChatContext(chatID string) (context.Context, chatmodel.ChatContext) {
	chatCtx := chatmodel.NewChatContext(chatID)
	return chatmodel.WithChatContext(context.Background(), chatCtx), chatCtx
}

func TestScratchpad_Run(t *testing.T) {
	sp := NewScratchpad(ModeDefault)
	ctx, cctx := newTestChatContext("chat1")

	stats, out := sp.EndRun(ctx)
	assert.Nil(t, stats)
	assert.Nil(t, out)

	sp.StartRun(ctx)
	require.Contains(t, sp.runs, runKey(cctx))

	ast := &fakeAssistant{name: "A1"}
	sp.OnQueryStart(ctx, ast, "q1")
	sp.OnQueryEnd(ctx, ast, "q1", "a1")
	sp.OnQueryError(ctx, ast, "q2", errors.New("boom"))
	sp.OnToolStart(ctx, ast, "add", "{}")
	sp.OnToolError(ctx, ast, "add", "{}", errors.New("bad input"))

	stats, out = sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, "chat1", stats.ChatID)
	assert.Equal(t, cctx.RunID(), stats.RunID)
	assert.Equal(t, uint32(1), stats.QueriesSucceeded)
	assert.Equal(t, uint32(1), stats.QueriesFailed)

	text := string(out)
	assert.Contains(t, text, "*** Run Started ***")
	assert.Contains(t, text, "Queries: 2, Failed: 1")
	assert.Contains(t, text, "Tool calls: 1, Failed: 1")
	assert.Contains(t, text, "*** Run Ended. Duration:")
	// the answer is printed only in verbose mode
	assert.NotContains(t, text, "Answer:")
	assert.Empty(t, sp.runs)

	// each run is recorded separately
	cctx.NewRun()
	sp.OnQueryStart(ctx, ast, "ignored")
	stats, _ = sp.EndRun(ctx)
	assert.Nil(t, stats)

	sp.StartRun(context.Background())
	assert.Empty(t, sp.runs)
	sp.OnQueryStart(context.Background(), ast, "ignored")
	stats, _ = sp.EndRun(context.Background())
	assert.Nil(t, stats)
}

func TestScratchpad_Verbose(t *testing.T) {
	sp := NewScratchpad(ModeVerbose)
	ctx, _ := newTestChatContext("chat2")
	sp.StartRun(ctx)

	ast := &fakeAssistant{name: "A1"}
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    "Answer 1",
			StopReason: llms.StopReasonStop,
			GenerationInfo: map[string]any{
				llms.GenerationInfoInputTokens:  int64(10),
				llms.GenerationInfoOutputTokens: int64(5),
				llms.GenerationInfoTotalTokens:  int64(15),
			},
		}},
	}

	sp.OnQueryStart(ctx, ast, "input")
	sp.OnModelCallStart(ctx, ast, []llms.Message{llms.UserMessage("foo")}, nil)
	sp.OnModelCallEnd(ctx, ast, resp)
	sp.OnToolStart(ctx, ast, "T1", "tinput")
	sp.OnToolEnd(ctx, ast, "T1", "tinput", []mcp.ToolResult{{Type: "text", Text: "toutput"}})
	sp.OnQueryEnd(ctx, ast, "input", "Answer 1")

	stats, out := sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, uint32(1), stats.ModelCalls)
	assert.Equal(t, uint32(1), stats.TotalMessages)
	assert.Equal(t, uint64(7), stats.LLMBytesOut)
	assert.Equal(t, uint64(8), stats.LLMBytesIn)
	assert.Equal(t, uint64(10), stats.LLMInputTokens)
	assert.Equal(t, uint64(5), stats.LLMOutputTokens)
	assert.Equal(t, uint64(15), stats.LLMTotalTokens)
	assert.Equal(t, uint32(1), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)

	text := string(out)
	assert.Contains(t, text, "A1 Query Start: input")
	assert.Contains(t, text, "A1 Model Call: OpenAI, 1 messages, 0 tools")
	assert.Contains(t, text, "A1 [0] user: foo")
	assert.Contains(t, text, "A1 Model Call End: 10 input tokens, 5 output tokens, 15 total tokens")
	assert.Contains(t, text, "A1 Tool Start: T1 tinput")
	assert.Contains(t, text, "A1 Tool Output: T1 toutput")
	assert.Contains(t, text, "A1 Tool End: T1")
	assert.Contains(t, text, "A1 Answer: Answer 1")
	assert.Contains(t, text, "Model calls: 1, Messages: 1, Bytes Out: 7, Bytes In: 8, Input Tokens: 10, Output Tokens: 5, Total Tokens: 15")
}

func TestScratchpad_Concurrent(t *testing.T) {
	sp := NewScratchpad(ModeDefault)
	ast := &fakeAssistant{name: "A1"}

	var wg sync.WaitGroup
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, _ := newTestChatContext(id)
			sp.StartRun(ctx)

			var inner sync.WaitGroup
			for range 10 {
				inner.Add(1)
				go func() {
					defer inner.Done()
					sp.OnToolStart(ctx, ast, "add", "{}")
					sp.OnToolEnd(ctx, ast, "add", "{}", nil)
				}()
			}
			inner.Wait()

			stats, _ := sp.EndRun(ctx)
			assert.Equal(t, uint32(10), stats.ToolsCalls)
			assert.Equal(t, uint32(10), stats.ToolsCallsSucceeded)
		}()
	}
	wg.Wait()
	assert.Empty(t, sp.runs)
}

func TestRun_printf(t *testing.T) {
	old := TimeNowFn
	TimeNowFn = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { TimeNowFn = old }()

	r := &run{key: "chat1.run1"}
	r.printf("hello %s", "again")
	r.printf("bye")

	lines := strings.Split(strings.TrimSpace(r.w.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-01-01 12:00:00 chat1.run1 hello again", lines[0])
	assert.Equal(t, "2024-01-01 12:00:00 chat1.run1 bye", lines[1])
}
