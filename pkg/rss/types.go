// Package rss implements the news ingestion pipeline: feed parsing,
// bounded-concurrency fetching, and the daily cache artifact consumed by the
// agent's news tools.
package rss

import "time"

// Article is a single normalised feed entry.
// Title and Link are always non-empty; Description may be empty but is always
// present on the wire.
type Article struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PubDate     string   `json:"pub_date,omitempty"`
	Author      string   `json:"author,omitempty"`
	Source      string   `json:"source,omitempty"`
	Categories  []string `json:"categories"`
}

// Source identifies one configured feed.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FetchOutcome is the per-source result of a fetch batch.
// Success=false implies Articles is empty and Error is set;
// Success=true implies Error is empty.
type FetchOutcome struct {
	URL       string    `json:"url"`
	Success   bool      `json:"success"`
	Articles  []Article `json:"articles"`
	Error     string    `json:"error,omitempty"`
	FetchTime string    `json:"fetch_time"`
}

// AggregatedResult collects every outcome of one fetch batch.
type AggregatedResult struct {
	TotalSources      int            `json:"total_sources"`
	SuccessfulSources int            `json:"successful_sources"`
	FailedSources     int            `json:"failed_sources"`
	TotalArticles     int            `json:"total_articles"`
	Outcomes          []FetchOutcome `json:"outcomes"`
	FetchTime         string         `json:"fetch_time"`
}

// AllArticles returns the articles of all successful outcomes, in outcome order.
func (r *AggregatedResult) AllArticles() []Article {
	var all []Article
	for _, o := range r.Outcomes {
		if o.Success {
			all = append(all, o.Articles...)
		}
	}
	return all
}

// DefaultSources is the built-in feed list, used when no explicit sources are
// configured.
var DefaultSources = []Source{
	{Name: "FT Chinese", URL: "http://www.ftchinese.com/rss/feed"},
	{Name: "BBC Chinese", URL: "https://feeds.bbci.co.uk/zhongwen/simp/rss.xml"},
	{Name: "China News", URL: "https://www.chinanews.com.cn/rss/scroll-news.xml"},
	{Name: "People's Daily Politics", URL: "http://www.people.com.cn/rss/politics.xml"},
	{Name: "GeekPark", URL: "https://www.geekpark.net/rss"},
	{Name: "SSPAI", URL: "https://sspai.com/feed"},
	{Name: "Sanhua Daily News", URL: "https://sanhua.himrr.com/daily-news/feed"},
	{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
	{Name: "AIBase News", URL: "https://rsshub.app/aibase/news"},
	{Name: "V2EX Hot Topics", URL: "https://rsshub.app/v2ex/topics/hot"},
	{Name: "Solidot", URL: "https://www.solidot.org/index.rss"},
}

// SourceName resolves the configured display name for a URL, falling back to
// the URL itself for unknown feeds.
func SourceName(sources []Source, url string) string {
	for _, s := range sources {
		if s.URL == url {
			return s.Name
		}
	}
	return url
}

// timestamp formats t the way the artifact and fetch records expect.
func timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
