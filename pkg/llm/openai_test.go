package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *openAIClient {
	return newOpenAIClient(
		providerSettings{apiKey: "test-key", baseURL: baseURL},
		clientOptions{maxRetries: 3, retryDelay: time.Millisecond, requestTimeout: 5 * time.Second},
	)
}

func sseHandler(chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func collect(t *testing.T, deltas <-chan Delta) []Delta {
	t.Helper()
	var out []Delta
	for d := range deltas {
		out = append(out, d)
	}
	return out
}

func TestStream_TextAndThinking(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"reasoning_content":"pondering"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	}))
	defer srv.Close()

	deltas, err := testClient(srv.URL).Stream(context.Background(), Request{Model: "test-model", Thinking: true})
	require.NoError(t, err)

	got := collect(t, deltas)
	require.Len(t, got, 4)
	assert.Equal(t, "pondering", got[0].Thinking)
	assert.Equal(t, "Hel", got[1].Text)
	assert.Equal(t, "lo", got[2].Text)
	assert.Equal(t, "stop", got[3].FinishReason)
}

func TestStream_ThinkingDisabledDropsReasoning(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"reasoning_content":"pondering"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	}))
	defer srv.Close()

	deltas, err := testClient(srv.URL).Stream(context.Background(), Request{Model: "test-model"})
	require.NoError(t, err)

	// The provider volunteered reasoning content but the request did not ask
	// for it, so only text and the finish reason come through.
	got := collect(t, deltas)
	require.Len(t, got, 2)
	assert.Equal(t, "Hello", got[0].Text)
	assert.Equal(t, "stop", got[1].FinishReason)
}

func TestStream_ToolCallFragments(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"filter_rss_news","arguments":""}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"query\":"}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"ai\"}"}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	}))
	defer srv.Close()

	deltas, err := testClient(srv.URL).Stream(context.Background(), Request{Model: "test-model"})
	require.NoError(t, err)

	got := collect(t, deltas)
	require.Len(t, got, 4)

	first := got[0].ToolCall
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "call_1", first.ID)
	assert.Equal(t, "filter_rss_news", first.Name)

	second := got[1].ToolCall
	require.NotNil(t, second)
	assert.Empty(t, second.ID)
	assert.Equal(t, `{"query":`, second.ArgsDelta)

	assert.Equal(t, `"ai"}`, got[2].ToolCall.ArgsDelta)
	assert.Equal(t, "tool_calls", got[3].FinishReason)
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Complete(context.Background(), Request{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), Request{Model: "test-model"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildRequest_GatewayModelOverride(t *testing.T) {
	c := newOpenAIClient(
		providerSettings{apiKey: "k", baseURL: "http://localhost", modelOverride: "deepseek/deepseek-chat"},
		clientOptions{},
	)
	req := c.buildRequest(Request{Model: "glm-4.5-flash"}, true)
	assert.Equal(t, "deepseek/deepseek-chat", req.Model)

	plain := testClient("http://localhost").buildRequest(Request{Model: "glm-4.5-flash"}, false)
	assert.Equal(t, "glm-4.5-flash", plain.Model)
}

func TestBuildRequest_ToolsAndMessages(t *testing.T) {
	c := testClient("http://localhost")
	req := c.buildRequest(Request{
		Model: "m",
		Messages: []ChatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "assistant", Content: "", ToolCalls: []ToolCall{
				{ID: "call_1", Name: "fetch_rss_news", Arguments: "{}"},
			}},
			{Role: "tool", Content: `{"ok":true}`, ToolCallID: "call_1"},
		},
		Tools: []ToolDefinition{
			{Name: "fetch_rss_news", Description: "latest news", Parameters: map[string]any{"type": "object"}},
		},
	}, true)

	require.Len(t, req.Messages, 3)
	require.Len(t, req.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_1", req.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "call_1", req.Messages[2].ToolCallID)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "fetch_rss_news", req.Tools[0].Function.Name)
}
