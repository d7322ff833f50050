package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// FetchConfig bounds one fetch batch.
type FetchConfig struct {
	MaxWorkers int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

// DefaultFetchConfig mirrors the production cron job settings.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxWorkers: 10,
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Second,
		UserAgent:  "Mozilla/5.0 (RSS Fetcher/1.0)",
	}
}

// Fetcher retrieves many feeds concurrently with per-source retries.
// A failing source never aborts the batch: every source yields exactly one
// FetchOutcome.
type Fetcher struct {
	config FetchConfig
	client *http.Client
}

// NewFetcher creates a fetcher with the given config. Zero-valued fields fall
// back to defaults.
func NewFetcher(cfg FetchConfig) *Fetcher {
	def := DefaultFetchConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Fetcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchSingle retrieves and parses one feed. Transport errors (including
// timeouts) are retried up to MaxRetries with RetryDelay between attempts; a
// non-2xx response fails immediately.
func (f *Fetcher) FetchSingle(ctx context.Context, source Source) FetchOutcome {
	var lastErr string

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return failedOutcome(source.URL, ctx.Err().Error())
			case <-time.After(f.config.RetryDelay):
			}
		}

		data, status, err := f.get(ctx, source.URL)
		if err != nil {
			if ctx.Err() != nil {
				return failedOutcome(source.URL, ctx.Err().Error())
			}
			lastErr = fmt.Sprintf("request failed: %v", err)
			slog.Warn("Feed fetch attempt failed",
				"source", source.Name, "attempt", attempt+1, "error", err)
			continue
		}
		if status < 200 || status >= 300 {
			// Not a transport failure — retrying would return the same status.
			return failedOutcome(source.URL, fmt.Sprintf("unexpected status %d", status))
		}

		articles := Parse(data, source.Name)
		slog.Info("Feed fetched", "source", source.Name, "articles", len(articles))
		return FetchOutcome{
			URL:       source.URL,
			Success:   true,
			Articles:  articles,
			FetchTime: timestamp(time.Now()),
		}
	}

	slog.Error("Feed fetch failed after retries", "source", source.Name, "error", lastErr)
	return failedOutcome(source.URL, lastErr)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// FetchAll retrieves all sources in parallel, bounded by MaxWorkers.
// Outcomes arrive in completion order; the aggregate counters always satisfy
// successful+failed == total.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) *AggregatedResult {
	if len(sources) == 0 {
		sources = DefaultSources
	}

	slog.Info("Fetching feeds", "count", len(sources), "workers", f.config.MaxWorkers)

	jobs := make(chan Source)
	outcomes := make(chan FetchOutcome, len(sources))

	var wg sync.WaitGroup
	workers := f.config.MaxWorkers
	if workers > len(sources) {
		workers = len(sources)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				outcomes <- f.FetchSingle(ctx, src)
			}
		}()
	}

	for _, src := range sources {
		jobs <- src
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	result := &AggregatedResult{
		TotalSources: len(sources),
		FetchTime:    timestamp(time.Now()),
	}
	for o := range outcomes {
		if o.Success {
			result.SuccessfulSources++
			result.TotalArticles += len(o.Articles)
		} else {
			result.FailedSources++
		}
		result.Outcomes = append(result.Outcomes, o)
	}

	slog.Info("Fetch batch complete",
		"successful", result.SuccessfulSources,
		"failed", result.FailedSources,
		"articles", result.TotalArticles)
	return result
}

func failedOutcome(url, errMsg string) FetchOutcome {
	if errMsg == "" {
		errMsg = "fetch failed"
	}
	return FetchOutcome{
		URL:       url,
		Success:   false,
		Error:     errMsg,
		FetchTime: timestamp(time.Now()),
	}
}
