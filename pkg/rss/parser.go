package rss

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parse extracts articles from raw RSS 2.0 or Atom bytes. Entries without a
// title or link are skipped. A document that fails to parse at all yields an
// empty slice — ingestion treats unparseable feeds the same as empty ones.
func Parse(data []byte, source string) []Article {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(data))
	if err != nil || feed == nil {
		slog.Warn("Feed parse failed", "source", source, "error", err)
		return nil
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if a, ok := parseItem(item, source); ok {
			articles = append(articles, a)
		}
	}
	return articles
}

// parseItem normalises a single feed entry.
// Description preference: summary/description first, then the first content
// value. Author falls back from the plain author field to the structured one.
func parseItem(item *gofeed.Item, source string) (Article, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Article{}, false
	}
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Article{}, false
	}

	description := strings.TrimSpace(item.Description)
	if description == "" {
		description = strings.TrimSpace(item.Content)
	}

	pubDate := item.Published
	if pubDate == "" {
		pubDate = item.Updated
	}

	var author string
	if item.Author != nil && item.Author.Name != "" {
		author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	var categories []string
	for _, c := range item.Categories {
		if c != "" {
			categories = append(categories, c)
		}
	}

	return Article{
		Title:       title,
		Link:        link,
		Description: description,
		PubDate:     pubDate,
		Author:      author,
		Source:      source,
		Categories:  categories,
	}, true
}
