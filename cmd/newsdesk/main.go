// Newsdesk server — conversation API, SSE streaming, and the tool-calling
// news agent.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/newsdesk-ai/newsdesk/pkg/agent/tools"
	"github.com/newsdesk-ai/newsdesk/pkg/api"
	"github.com/newsdesk-ai/newsdesk/pkg/cleanup"
	"github.com/newsdesk-ai/newsdesk/pkg/config"
	"github.com/newsdesk-ai/newsdesk/pkg/database"
	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/rss"
	"github.com/newsdesk-ai/newsdesk/pkg/services"
	"github.com/newsdesk-ai/newsdesk/pkg/upload"
	"github.com/newsdesk-ai/newsdesk/pkg/version"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to the environment file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load env file, continuing with existing environment",
			"path", *envFile, "error", err)
	} else {
		slog.Info("Loaded environment", "path", *envFile)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting newsdesk",
		"version", version.Full(),
		"http_port", cfg.HTTPPort,
		"llm_provider", cfg.LLM.Provider,
		"environment", cfg.Environment)

	ctx := context.Background()

	// 1. Database (runs migrations on connect)
	dbClient, err := database.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("Connected to PostgreSQL database")

	// 2. Domain services
	conversations := services.NewConversationService(dbClient.Pool())
	messages := services.NewMessageService(dbClient.Pool())
	slog.Info("Services initialized")

	// 2a. Conversation retention
	var retention *cleanup.Service
	if cfg.Retention.Enabled {
		retention = cleanup.NewService(cfg.Retention, conversations)
		retention.Start(ctx)
		defer retention.Stop()
	}

	// 3. LLM client
	llmClient, err := llm.NewFromConfig(cfg.LLM, cfg.Cache)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	slog.Info("LLM client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	// 4. Upload store
	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSize, cfg.Upload.AllowedExts)
	if err != nil {
		slog.Error("Failed to initialize upload store", "dir", cfg.Upload.Dir, "error", err)
		os.Exit(1)
	}

	// 5. News cache materializer
	fetcher := rss.NewFetcher(rss.FetchConfig{
		MaxWorkers: cfg.RSS.MaxWorkers,
		Timeout:    cfg.RSS.FetchTimeout,
		MaxRetries: cfg.RSS.MaxRetries,
		RetryDelay: time.Second,
		UserAgent:  "Mozilla/5.0 (RSS Fetcher/1.0)",
	})
	materializer := rss.NewMaterializer(fetcher, rss.DefaultSources, cfg.RSS.CachePath, cfg.RSS.MaxArticles)

	// 6. Agent tool registry
	registry := tools.NewRegistry()
	if err := tools.RegisterRSSTools(registry, cfg.RSS.CachePath); err != nil {
		slog.Error("Failed to register rss tools", "error", err)
		os.Exit(1)
	}
	if err := tools.RegisterDocumentTools(registry, uploads); err != nil {
		slog.Error("Failed to register document tools", "error", err)
		os.Exit(1)
	}
	slog.Info("Tool registry initialized", "tools", len(registry.Catalogue()))

	// 7. HTTP server
	httpServer := api.NewServer(cfg, dbClient, conversations, messages, llmClient, registry, uploads, materializer)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 9. Graceful shutdown: let in-flight streams finish
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
