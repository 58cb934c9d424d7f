package metricskey

import (
	"sort"
	"strings"
	"testing"

	"github.com/effective-security/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	require.NotEmpty(t, Metrics)
	assert.True(t, sort.SliceIsSorted(Metrics, func(i, j int) bool {
		return Metrics[i].Name < Metrics[j].Name
	}), "keep Metrics sorted by name")

	seen := map[string]bool{}
	for _, m := range Metrics {
		assert.False(t, seen[m.Name], "duplicate: %s", m.Name)
		seen[m.Name] = true

		assert.True(t, strings.HasPrefix(m.Help, m.Name+" provides"), m.Name)
		assert.NotEmpty(t, m.RequiredTags, m.Name)

		switch {
		case strings.HasPrefix(m.Name, "stats_"):
			assert.Equal(t, metrics.TypeCounter, m.Type, m.Name)
		case strings.HasPrefix(m.Name, "perf_"):
			assert.Equal(t, metrics.TypeSample, m.Type, m.Name)
		default:
			assert.Fail(t, "unexpected prefix", m.Name)
		}
	}
}

func TestTags(t *testing.T) {
	tcases := []struct {
		tag  string
		list []*metrics.Describe
	}{
		{"assistant", []*metrics.Describe{&StatsLLMMessagesSent, &StatsQuerySucceeded, &StatsQueryFailed, &StatsQueryFallback, &PerfQuery}},
		{"tool", []*metrics.Describe{&StatsToolCallsSucceeded, &StatsToolCallsFailed, &StatsToolCallsNotFound, &StatsServerToolCalls, &PerfToolCall}},
		{"collection", []*metrics.Describe{&StatsRAGDocumentsIngested, &PerfRAGSearch}},
		{"model", []*metrics.Describe{&StatsLLMBytesSent, &StatsLLMTotalTokens, &PerfModelCall}},
	}
	for _, tc := range tcases {
		t.Run(tc.tag, func(t *testing.T) {
			for _, m := range tc.list {
				assert.Contains(t, m.RequiredTags, tc.tag, m.Name)
			}
		})
	}
}
