package rss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultMaxCachedArticles caps the artifact size.
const DefaultMaxCachedArticles = 200

var (
	// ErrCacheMissing indicates no artifact has been generated yet.
	ErrCacheMissing = errors.New("rss cache not generated")

	// ErrGenerateTimeout indicates an on-demand generation exceeded its
	// wall-clock limit.
	ErrGenerateTimeout = errors.New("rss cache generation timed out")
)

// ArtifactSummary describes one materialisation run.
type ArtifactSummary struct {
	TotalSources         int    `json:"total_sources"`
	SuccessfulSources    int    `json:"successful_sources"`
	FailedSources        int    `json:"failed_sources"`
	TotalArticlesFetched int    `json:"total_articles_fetched"`
	CachedArticles       int    `json:"cached_articles"`
	FetchTime            string `json:"fetch_time"`
	GeneratedAt          string `json:"generated_at"`
}

// Artifact is the daily-materialised news document served to the agent tools.
// It is rewritten atomically by the cache job and read-only everywhere else.
type Artifact struct {
	Summary  ArtifactSummary `json:"summary"`
	Articles []Article       `json:"articles"`
}

// Materializer runs the fetch-sort-truncate-persist cycle that produces the
// artifact.
type Materializer struct {
	fetcher     *Fetcher
	sources     []Source
	path        string
	maxArticles int
}

// NewMaterializer creates a materializer writing to path. maxArticles <= 0
// falls back to DefaultMaxCachedArticles.
func NewMaterializer(fetcher *Fetcher, sources []Source, path string, maxArticles int) *Materializer {
	if maxArticles <= 0 {
		maxArticles = DefaultMaxCachedArticles
	}
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Materializer{
		fetcher:     fetcher,
		sources:     sources,
		path:        path,
		maxArticles: maxArticles,
	}
}

// Path returns the artifact file location.
func (m *Materializer) Path() string { return m.path }

// Generate fetches all sources, keeps the newest maxArticles across the union
// of successful outcomes, and atomically replaces the artifact file.
func (m *Materializer) Generate(ctx context.Context) (*Artifact, error) {
	result := m.fetcher.FetchAll(ctx, m.sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := result.AllArticles()
	sorted := SortByPubDate(all)
	if len(sorted) > m.maxArticles {
		sorted = sorted[:m.maxArticles]
	}

	artifact := &Artifact{
		Summary: ArtifactSummary{
			TotalSources:         result.TotalSources,
			SuccessfulSources:    result.SuccessfulSources,
			FailedSources:        result.FailedSources,
			TotalArticlesFetched: len(all),
			CachedArticles:       len(sorted),
			FetchTime:            result.FetchTime,
			GeneratedAt:          timestamp(time.Now()),
		},
		Articles: sorted,
	}

	if err := writeArtifact(m.path, artifact); err != nil {
		return nil, fmt.Errorf("failed to persist rss cache: %w", err)
	}

	slog.Info("RSS cache generated",
		"path", m.path,
		"sources_ok", artifact.Summary.SuccessfulSources,
		"sources_total", artifact.Summary.TotalSources,
		"articles", artifact.Summary.CachedArticles)
	return artifact, nil
}

// GenerateWithTimeout runs Generate under a wall-clock cap, mapping the
// deadline to ErrGenerateTimeout so callers can distinguish it from other
// failures.
func (m *Materializer) GenerateWithTimeout(ctx context.Context, limit time.Duration) (*Artifact, error) {
	genCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	artifact, err := m.Generate(genCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && genCtx.Err() == context.DeadlineExceeded {
			return nil, ErrGenerateTimeout
		}
		return nil, err
	}
	return artifact, nil
}

// LoadArtifact reads the artifact at path. A missing file maps to
// ErrCacheMissing.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMissing
		}
		return nil, fmt.Errorf("failed to read rss cache: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode rss cache: %w", err)
	}
	return &artifact, nil
}

// writeArtifact persists via write-temp-then-rename in the target directory,
// so readers always observe either the old or the new snapshot.
func writeArtifact(path string, artifact *Artifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// pubDateFormats covers the date styles feeds actually emit: RFC 2822
// variants from RSS 2.0 and ISO-8601 from Atom.
var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParsePubDate parses a feed timestamp. Unparseable values return the Unix
// epoch so they sort after every dated article.
func ParsePubDate(value string) time.Time {
	if value == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range pubDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	slog.Warn("Unparseable pub date", "value", value)
	return time.Unix(0, 0).UTC()
}

// SortByPubDate returns articles ordered newest-first. The sort is stable so
// undated articles keep their relative input order at the tail.
func SortByPubDate(articles []Article) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ParsePubDate(sorted[i].PubDate).After(ParsePubDate(sorted[j].PubDate))
	})
	return sorted
}
