package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsdesk-ai/newsdesk/pkg/agent/tools"
	"github.com/newsdesk-ai/newsdesk/pkg/config"
	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
	"github.com/newsdesk-ai/newsdesk/pkg/rss"
	"github.com/newsdesk-ai/newsdesk/pkg/services"
	"github.com/newsdesk-ai/newsdesk/pkg/upload"
	testdb "github.com/newsdesk-ai/newsdesk/test/database"
)

// scriptedLLM plays back canned streams and completions.
type scriptedLLM struct {
	streams     [][]llm.Delta
	completions []string
	completeErr error
}

func (f *scriptedLLM) Stream(_ context.Context, _ llm.Request) (<-chan llm.Delta, error) {
	if len(f.streams) == 0 {
		return nil, errors.New("no scripted stream")
	}
	script := f.streams[0]
	f.streams = f.streams[1:]

	ch := make(chan llm.Delta, len(script))
	for _, d := range script {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func (f *scriptedLLM) Complete(context.Context, llm.Request) (string, error) {
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if len(f.completions) == 0 {
		return "", errors.New("no scripted completion")
	}
	out := f.completions[0]
	f.completions = f.completions[1:]
	return out, nil
}

type testEnv struct {
	t        *testing.T
	server   *Server
	llm      *scriptedLLM
	messages *services.MessageService
	cookie   *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbClient := testdb.NewTestClient(t)
	cfg := &config.Config{
		LLM: config.LLMConfig{
			Model:         "test-model",
			ThinkingModel: "test-thinking-model",
			AgentModel:    "test-agent-model",
			Temperature:   0.7,
			MaxTokens:     512,
		},
		Agent:       config.AgentConfig{MaxConversationHistory: 20, MaxToolIterations: 5},
		CORSOrigins: []string{"http://localhost:3000"},
		Environment: "development",
	}

	store, err := upload.NewStore(t.TempDir(), 1024*1024, []string{".pdf", ".csv", ".txt", ".md"})
	require.NoError(t, err)

	fetcher := rss.NewFetcher(rss.FetchConfig{
		MaxWorkers: 2,
		Timeout:    time.Second,
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
		UserAgent:  "newsdesk-test",
	})
	materializer := rss.NewMaterializer(fetcher,
		[]rss.Source{{Name: "Unreachable", URL: "http://127.0.0.1:1/feed.xml"}},
		filepath.Join(t.TempDir(), "rss_cache.json"), 10)

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.Definition{
		Name:        "echo",
		Description: "echoes its arguments",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["value"]}, nil
		},
	}))

	fakeLLM := &scriptedLLM{}
	conversations := services.NewConversationService(dbClient.Pool())
	messages := services.NewMessageService(dbClient.Pool())

	return &testEnv{
		t:        t,
		server:   NewServer(cfg, dbClient, conversations, messages, fakeLLM, registry, store, materializer),
		llm:      fakeLLM,
		messages: messages,
	}
}

// do performs one request, reusing the visitor cookie once established.
func (env *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	env.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if env.cookie != nil {
		req.AddCookie(env.cookie)
	}

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if env.cookie == nil {
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == visitorCookieName {
				env.cookie = cookie
			}
		}
	}
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// createConversation is a shortcut used by most handler tests.
func (env *testEnv) createConversation(convType models.ConversationType) *models.Conversation {
	env.t.Helper()
	rec := env.do(http.MethodPost, "/api/conversations",
		models.CreateConversationRequest{ConversationType: convType})
	require.Equal(env.t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decodeJSON[models.Conversation](env.t, rec)
	return &conv
}

// parseSSE decodes the data frames of an SSE response body.
func parseSSE(t *testing.T, body string) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}
