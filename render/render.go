package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/blogreader/config"
)

// Page is a post rendered for reading in the terminal
type Page struct {
	Title string
	Text  string
}

// Renderer loads a URL and turns it into readable text
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
}

// New creates the renderer selected in the config
func New(cfg config.Detail, client *http.Client) (Renderer, error) {
	switch cfg.Renderer {
	case config.HTTPRenderer, "":
		return NewHTTPRenderer(client), nil
	case config.BrowserRenderer:
		return NewBrowserRenderer(cfg.InstallBrowser), nil
	default:
		return nil, fmt.Errorf("unknown renderer: %s", cfg.Renderer)
	}
}

// HTTPRenderer downloads the page and extracts the article with readability
type HTTPRenderer struct {
	client *http.Client
}

func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRenderer{client: client}
}

func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (Page, error) {
	var page Page

	u, err := url.Parse(pageURL)
	if err != nil {
		return page, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return page, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, fmt.Errorf("failed to load %s: %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	return Extract(body, u)
}

// Extract pulls the title and the main readable text out of an HTML document.
// When readability finds no article the visible body text is used instead.
func Extract(body []byte, pageURL *url.URL) (Page, error) {
	var page Page

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page, fmt.Errorf("failed to parse html: %w", err)
	}
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			page.Text = normalizeWhitespace(buf.String())
		}
	} else {
		slog.Debug("readability failed, using body text", "url", pageURL, "error", err)
	}

	if page.Text == "" {
		doc.Find("script, style, noscript, nav, header, footer").Remove()
		page.Text = normalizeWhitespace(doc.Find("body").Text())
	}

	return page, nil
}

// normalizeWhitespace trims every line and collapses runs of blank lines into one
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
