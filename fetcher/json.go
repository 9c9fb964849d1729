package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/scipunch/blogreader/fetcher/types"
)

// JSONFetcher fetches the {"posts": [...]} summary feed
type JSONFetcher struct {
	endpoint string
	client   *http.Client
	maxBytes int64
}

// NewJSONFetcher creates a fetcher for endpoint; a nil client falls back to http.DefaultClient
func NewJSONFetcher(endpoint string, client *http.Client, maxBytes int64) *JSONFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &JSONFetcher{endpoint: endpoint, client: client, maxBytes: maxBytes}
}

type jsonFeed struct {
	Posts *[]jsonPost `json:"posts"`
}

type jsonPost struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
}

// Fetch performs one GET of endpoint?count=<count>
func (f *JSONFetcher) Fetch(ctx context.Context, count int) types.Result {
	if count <= 0 {
		err := types.Failure(types.KindTransport, fmt.Errorf("invalid batch size %d", count))
		logFailure("json", f.endpoint, err)
		return types.Failed(err)
	}

	feedURL, err := BatchURL(f.endpoint, count)
	if err != nil {
		logFailure("json", f.endpoint, err)
		return types.Failed(err)
	}

	body, err := getBody(ctx, f.client, feedURL, f.maxBytes)
	if err != nil {
		logFailure("json", feedURL, err)
		return types.Failed(err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		logFailure("json", feedURL, err)
		return types.Failed(err)
	}

	if len(doc.Posts) > count {
		slog.Debug("server returned more posts than requested, truncating", "requested", count, "received", len(doc.Posts))
		doc.Posts = doc.Posts[:count]
	}

	slog.Info("feed fetched", "url", feedURL, "posts", len(doc.Posts))
	return types.Succeeded(doc)
}

// BatchURL appends the count query parameter to endpoint, keeping any existing query
func BatchURL(endpoint string, count int) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", types.Failure(types.KindTransport, fmt.Errorf("malformed feed endpoint %q: %w", endpoint, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", types.Failure(types.KindTransport, fmt.Errorf("malformed feed endpoint %q: unsupported scheme %q", endpoint, u.Scheme))
	}
	if u.Host == "" {
		return "", types.Failure(types.KindTransport, fmt.Errorf("malformed feed endpoint %q: missing host", endpoint))
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseDocument decodes a {"posts": [{title, author, url}, ...]} body.
// A missing posts array or a post without one of its fields is a parse failure.
func ParseDocument(body []byte) (*types.Document, error) {
	var raw jsonFeed
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.Failure(types.KindParse, fmt.Errorf("failed to decode feed: %w", err))
	}
	if raw.Posts == nil {
		return nil, types.Failure(types.KindParse, errors.New("feed has no posts array"))
	}

	doc := &types.Document{Posts: make([]types.Post, 0, len(*raw.Posts))}
	for i, p := range *raw.Posts {
		switch {
		case p.Title == nil:
			return nil, types.Failure(types.KindParse, fmt.Errorf("post %d: missing title", i))
		case p.Author == nil:
			return nil, types.Failure(types.KindParse, fmt.Errorf("post %d: missing author", i))
		case p.URL == nil || *p.URL == "":
			return nil, types.Failure(types.KindParse, fmt.Errorf("post %d: missing url", i))
		}
		doc.Posts = append(doc.Posts, types.Post{
			Title:  *p.Title,
			Author: *p.Author,
			URL:    *p.URL,
		})
	}
	return doc, nil
}
