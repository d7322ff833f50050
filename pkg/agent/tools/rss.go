package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/newsdesk-ai/newsdesk/pkg/rss"
)

const (
	defaultFilterPool  = 50
	defaultFilterTopK  = 10
	maxRelevanceScore  = 10
	relevanceReasonFmt = "matched query terms in title or description"
)

// RegisterRSSTools adds the news tools backed by the cache artifact at
// cachePath.
func RegisterRSSTools(r *Registry, cachePath string) error {
	tools := []Definition{
		{
			Name: "fetch_rss_news",
			Description: "Fetch the latest cached news articles from all configured RSS sources. " +
				"Returns the most recent articles sorted newest first.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"max_articles": map[string]any{
						"type":        "integer",
						"description": "Maximum number of articles to return",
					},
					"sources_limit": map[string]any{
						"type":        "integer",
						"description": "Limit articles to the first N distinct sources",
					},
				},
			},
			Handler: fetchRSSNews(cachePath),
		},
		{
			Name: "filter_rss_news",
			Description: "Filter cached news articles by a free-text query and rank them by " +
				"relevance. Use this to find articles about a specific topic.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Topic or keywords to search for",
					},
					"max_articles": map[string]any{
						"type":        "integer",
						"description": "Size of the candidate pool, newest first (default 50)",
					},
					"top_k": map[string]any{
						"type":        "integer",
						"description": "Number of ranked articles to return (default 10)",
					},
				},
				"required": []any{"query"},
			},
			Handler: filterRSSNews(cachePath),
		},
		{
			Name: "search_rss_by_keywords",
			Description: "Search cached news articles for any of the given keywords " +
				"(case-insensitive substring match on title and description).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keywords": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Keywords to look for",
					},
					"max_articles": map[string]any{
						"type":        "integer",
						"description": "Size of the candidate pool, newest first (default 50)",
					},
				},
				"required": []any{"keywords"},
			},
			Handler: searchRSSByKeywords(cachePath),
		},
	}

	for _, def := range tools {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// cacheMissingResult is what the model sees when no artifact exists yet.
// Structured rather than an error so the model can explain the situation.
func cacheMissingResult() map[string]any {
	return map[string]any{
		"success": false,
		"error":   "news cache has not been generated yet",
		"hint":    "trigger cache generation or try again after the daily refresh",
	}
}

func articleMap(a rss.Article) map[string]any {
	m := map[string]any{
		"title":       a.Title,
		"link":        a.Link,
		"description": a.Description,
	}
	if a.PubDate != "" {
		m["pub_date"] = a.PubDate
	}
	if a.Source != "" {
		m["source"] = a.Source
	}
	return m
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func fetchRSSNews(cachePath string) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		artifact, err := rss.LoadArtifact(cachePath)
		if err != nil {
			if errors.Is(err, rss.ErrCacheMissing) {
				return cacheMissingResult(), nil
			}
			return nil, err
		}

		articles := artifact.Articles
		if limit := intArg(args, "sources_limit", 0); limit > 0 {
			articles = limitSources(articles, limit)
		}
		if max := intArg(args, "max_articles", 0); max > 0 && len(articles) > max {
			articles = articles[:max]
		}

		out := make([]any, 0, len(articles))
		for _, a := range articles {
			out = append(out, articleMap(a))
		}
		return map[string]any{
			"success": true,
			"summary": map[string]any{
				"total_sources":          artifact.Summary.TotalSources,
				"successful_sources":     artifact.Summary.SuccessfulSources,
				"failed_sources":         artifact.Summary.FailedSources,
				"total_articles_fetched": artifact.Summary.TotalArticlesFetched,
				"status_message": fmt.Sprintf("%d/%d sources",
					artifact.Summary.SuccessfulSources, artifact.Summary.TotalSources),
				"generated_at": artifact.Summary.GeneratedAt,
			},
			"articles": out,
			"note":     fmt.Sprintf("returning %d of %d cached articles", len(out), len(artifact.Articles)),
		}, nil
	}
}

// limitSources keeps articles from the first n distinct sources in order.
func limitSources(articles []rss.Article, n int) []rss.Article {
	seen := make(map[string]bool)
	var out []rss.Article
	for _, a := range articles {
		if !seen[a.Source] {
			if len(seen) >= n {
				continue
			}
			seen[a.Source] = true
		}
		out = append(out, a)
	}
	return out
}

type scoredArticle struct {
	article rss.Article
	score   int
}

// scoreArticle counts query token hits: title hits weigh 3, description
// hits 1. Tokens and fields are lowercased; matching is substring-based so
// languages without word spacing still match.
func scoreArticle(a rss.Article, tokens []string) int {
	title := strings.ToLower(a.Title)
	description := strings.ToLower(a.Description)

	score := 0
	for _, token := range tokens {
		score += strings.Count(title, token) * 3
		score += strings.Count(description, token)
	}
	return score
}

func filterRSSNews(cachePath string) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return nil, errors.New("query must not be empty")
		}

		artifact, err := rss.LoadArtifact(cachePath)
		if err != nil {
			if errors.Is(err, rss.ErrCacheMissing) {
				return cacheMissingResult(), nil
			}
			return nil, err
		}

		pool := artifact.Articles
		if max := intArg(args, "max_articles", defaultFilterPool); max > 0 && len(pool) > max {
			pool = pool[:max]
		}
		topK := intArg(args, "top_k", defaultFilterTopK)

		tokens := strings.Fields(strings.ToLower(query))

		var scored []scoredArticle
		for _, a := range pool {
			if s := scoreArticle(a, tokens); s > 0 {
				scored = append(scored, scoredArticle{article: a, score: s})
			}
		}
		// Stable sort keeps the newest-first order among equal scores.
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].score > scored[j].score
		})
		if len(scored) > topK {
			scored = scored[:topK]
		}

		out := make([]any, 0, len(scored))
		for _, s := range scored {
			m := articleMap(s.article)
			score := s.score
			if score > maxRelevanceScore {
				score = maxRelevanceScore
			}
			m["relevance_score"] = score
			m["relevance_reason"] = relevanceReasonFmt
			out = append(out, m)
		}
		return map[string]any{
			"success":  true,
			"query":    query,
			"articles": out,
			"note":     fmt.Sprintf("%d of %d candidates matched", len(out), len(pool)),
		}, nil
	}
}

func searchRSSByKeywords(cachePath string) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		raw, _ := args["keywords"].([]any)
		var keywords []string
		for _, k := range raw {
			if s, ok := k.(string); ok && strings.TrimSpace(s) != "" {
				keywords = append(keywords, strings.ToLower(s))
			}
		}
		if len(keywords) == 0 {
			return nil, errors.New("keywords must not be empty")
		}

		artifact, err := rss.LoadArtifact(cachePath)
		if err != nil {
			if errors.Is(err, rss.ErrCacheMissing) {
				return cacheMissingResult(), nil
			}
			return nil, err
		}

		pool := artifact.Articles
		if max := intArg(args, "max_articles", defaultFilterPool); max > 0 && len(pool) > max {
			pool = pool[:max]
		}

		var out []any
		for _, a := range pool {
			haystack := strings.ToLower(a.Title) + " " + strings.ToLower(a.Description)
			for _, kw := range keywords {
				if strings.Contains(haystack, kw) {
					out = append(out, articleMap(a))
					break
				}
			}
		}
		return map[string]any{
			"success":  true,
			"keywords": keywords,
			"articles": out,
			"note":     fmt.Sprintf("%d of %d candidates matched", len(out), len(pool)),
		}, nil
	}
}
