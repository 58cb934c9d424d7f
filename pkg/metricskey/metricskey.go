package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"assistant", "model"},
	}

	StatsQuerySucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_query_succeeded",
		Help:         "stats_query_succeeded provides total queries answered",
		RequiredTags: []string{"assistant"},
	}

	StatsQueryFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_query_failed",
		Help:         "stats_query_failed provides total queries failed, by reason",
		RequiredTags: []string{"assistant", "reason"},
	}

	StatsQueryFallback = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_query_fallback",
		Help:         "stats_query_fallback provides total queries ended with unexpected finish reason",
		RequiredTags: []string{"assistant", "finish_reason"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsServerToolCalls = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_server_tool_calls",
		Help:         "stats_server_tool_calls provides total tool calls served by MCP server",
		RequiredTags: []string{"tool", "status"},
	}

	StatsRAGDocumentsIngested = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_rag_documents_ingested",
		Help:         "stats_rag_documents_ingested provides total documents stored in vector store",
		RequiredTags: []string{"collection"},
	}
)

// Perf
var (
	PerfQuery = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_query",
		Help:         "perf_query provides duration of a query resolution",
		RequiredTags: []string{"assistant"},
	}

	PerfModelCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_model_call",
		Help:         "perf_model_call provides duration of a model call",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfRAGSearch = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_rag_search",
		Help:         "perf_rag_search provides duration of vector search",
		RequiredTags: []string{"collection"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfModelCall,
	&PerfQuery,
	&PerfRAGSearch,
	&PerfToolCall,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsQueryFailed,
	&StatsQueryFallback,
	&StatsQuerySucceeded,
	&StatsRAGDocumentsIngested,
	&StatsServerToolCalls,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
