// rsscache is the one-shot news cache job: fetch every configured feed and
// atomically replace the artifact the agent tools read. Run it from cron or
// a Kubernetes CronJob ahead of peak hours.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/newsdesk-ai/newsdesk/pkg/config"
	"github.com/newsdesk-ai/newsdesk/pkg/rss"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to the environment file")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall generation deadline")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load env file, continuing with existing environment",
			"path", *envFile, "error", err)
	}

	cfg := config.Load()

	fetcher := rss.NewFetcher(rss.FetchConfig{
		MaxWorkers: cfg.RSS.MaxWorkers,
		Timeout:    cfg.RSS.FetchTimeout,
		MaxRetries: cfg.RSS.MaxRetries,
		RetryDelay: time.Second,
		UserAgent:  "Mozilla/5.0 (RSS Fetcher/1.0)",
	})
	materializer := rss.NewMaterializer(fetcher, rss.DefaultSources, cfg.RSS.CachePath, cfg.RSS.MaxArticles)

	slog.Info("Generating rss cache",
		"path", cfg.RSS.CachePath,
		"sources", len(rss.DefaultSources),
		"timeout", *timeout)

	start := time.Now()
	artifact, err := materializer.GenerateWithTimeout(context.Background(), *timeout)
	if err != nil {
		slog.Error("Cache generation failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Cache generated",
		"successful_sources", artifact.Summary.SuccessfulSources,
		"failed_sources", artifact.Summary.FailedSources,
		"cached_articles", artifact.Summary.CachedArticles,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if artifact.Summary.SuccessfulSources == 0 {
		// Every feed failed; exit nonzero so the scheduler alerts.
		os.Exit(1)
	}
}
