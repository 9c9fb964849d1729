package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/blogreader/fetcher/types"
)

// RSSFetcher reads RSS, Atom or JSON Feed documents using gofeed
type RSSFetcher struct {
	feedURL  string
	client   *http.Client
	maxBytes int64
	parser   *gofeed.Parser
}

// NewRSSFetcher creates a new RSS fetcher
func NewRSSFetcher(feedURL string, client *http.Client, maxBytes int64) *RSSFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &RSSFetcher{
		feedURL:  feedURL,
		client:   client,
		maxBytes: maxBytes,
		parser:   gofeed.NewParser(),
	}
}

// Fetch retrieves the feed and keeps its first count items.
// Syndication feeds have no batch parameter, so count is applied locally.
func (f *RSSFetcher) Fetch(ctx context.Context, count int) types.Result {
	if count <= 0 {
		err := types.Failure(types.KindTransport, fmt.Errorf("invalid batch size %d", count))
		logFailure("rss", f.feedURL, err)
		return types.Failed(err)
	}

	body, err := getBody(ctx, f.client, f.feedURL, f.maxBytes)
	if err != nil {
		logFailure("rss", f.feedURL, err)
		return types.Failed(err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		err = types.Failure(types.KindParse, fmt.Errorf("failed to parse feed: %w", err))
		logFailure("rss", f.feedURL, err)
		return types.Failed(err)
	}

	doc := &types.Document{Posts: make([]types.Post, 0, min(count, len(parsed.Items)))}
	for i, item := range parsed.Items {
		if len(doc.Posts) == count {
			break
		}
		if item.Link == "" {
			err := types.Failure(types.KindParse, fmt.Errorf("item %d: missing link", i))
			logFailure("rss", f.feedURL, err)
			return types.Failed(err)
		}
		doc.Posts = append(doc.Posts, types.Post{
			Title:  item.Title,
			Author: itemAuthor(item, parsed),
			URL:    item.Link,
		})
	}

	slog.Info("feed fetched", "url", f.feedURL, "posts", len(doc.Posts))
	return types.Succeeded(doc)
}

func itemAuthor(item *gofeed.Item, feed *gofeed.Feed) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if feed.Author != nil {
		return feed.Author.Name
	}
	return ""
}
