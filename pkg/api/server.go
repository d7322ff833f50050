// Package api exposes the HTTP surface: conversation CRUD, the two SSE
// streaming endpoints, file uploads, and health.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/newsdesk-ai/newsdesk/pkg/agent"
	"github.com/newsdesk-ai/newsdesk/pkg/agent/tools"
	"github.com/newsdesk-ai/newsdesk/pkg/config"
	"github.com/newsdesk-ai/newsdesk/pkg/database"
	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/rss"
	"github.com/newsdesk-ai/newsdesk/pkg/services"
	"github.com/newsdesk-ai/newsdesk/pkg/upload"
)

// Server wires services, the LLM client, and the tool registry to HTTP routes.
type Server struct {
	cfg           *config.Config
	dbClient      *database.Client
	conversations *services.ConversationService
	messages      *services.MessageService
	llmClient     llm.Client
	registry      *tools.Registry
	uploads       *upload.Store
	rssCache      *rss.Materializer

	echo *echo.Echo
	http *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	conversations *services.ConversationService,
	messages *services.MessageService,
	llmClient llm.Client,
	registry *tools.Registry,
	uploads *upload.Store,
	rssCache *rss.Materializer,
) *Server {
	s := &Server{
		cfg:           cfg,
		dbClient:      dbClient,
		conversations: conversations,
		messages:      messages,
		llmClient:     llmClient,
		registry:      registry,
		uploads:       uploads,
		rssCache:      rssCache,
	}

	e := echo.New()
	e.Use(requestID())
	e.Use(securityHeaders())
	e.Use(corsMiddleware(cfg.CORSOrigins))

	e.GET("/health", s.healthHandler)

	// Everything under /api runs with a visitor identity.
	g := e.Group("/api", visitorCookie(cfg.IsProduction()))
	g.POST("/conversations", s.createConversationHandler)
	g.GET("/conversations", s.listConversationsHandler)
	g.GET("/conversations/:id", s.getConversationHandler)
	g.DELETE("/conversations/:id", s.deleteConversationHandler)
	g.PUT("/conversations/:id/title", s.updateTitleHandler)
	g.POST("/conversations/:id/generate-title", s.generateTitleHandler)
	g.GET("/conversations/:id/messages", s.listMessagesHandler)
	g.POST("/chat/stream", s.chatStreamHandler)
	g.POST("/agent/stream", s.agentStreamHandler)
	g.POST("/agent/rss-cache/generate", s.generateRSSCacheHandler)
	g.POST("/uploads", s.uploadHandler)

	s.echo = e
	return s
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ServeHTTP makes the server usable directly in httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// newChat builds the plain chat streamer for one request.
func (s *Server) newChat(model string) *agent.Chat {
	return agent.NewChat(s.llmClient, s.messages, agent.Options{
		Model:       model,
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
	})
}

// newLoop builds the tool-calling loop for one request.
func (s *Server) newLoop(model string) *agent.Loop {
	return agent.NewLoop(s.llmClient, s.registry, s.messages, agent.Options{
		Model:         model,
		MaxIterations: s.cfg.Agent.MaxToolIterations,
		Temperature:   s.cfg.LLM.Temperature,
		MaxTokens:     s.cfg.LLM.MaxTokens,
	})
}
