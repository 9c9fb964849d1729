// Package detail is the post detail screen: it shows one post's page and shares its URL.
package detail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scipunch/blogreader/render"
	"github.com/scipunch/blogreader/share"
)

const mimePlainText = "text/plain"

type Screen struct {
	url          string
	renderer     render.Renderer
	sharer       share.Sharer
	chooserTitle string
}

// New builds the detail screen for url. url is kept exactly as received.
func New(url string, renderer render.Renderer, sharer share.Sharer, chooserTitle string) *Screen {
	return &Screen{
		url:          url,
		renderer:     renderer,
		sharer:       sharer,
		chooserTitle: chooserTitle,
	}
}

func (s *Screen) URL() string {
	return s.url
}

// Load renders the page behind the post URL
func (s *Screen) Load(ctx context.Context) (render.Page, error) {
	if s.renderer == nil {
		return render.Page{}, fmt.Errorf("no renderer configured")
	}
	page, err := s.renderer.Render(ctx, s.url)
	if err != nil {
		return render.Page{}, fmt.Errorf("failed to load %s: %w", s.url, err)
	}
	slog.Debug("detail loaded", "url", s.url, "title", page.Title)
	return page, nil
}

// Share hands the post URL to the sharer as plain text
func (s *Screen) Share(ctx context.Context) error {
	if s.sharer == nil {
		return fmt.Errorf("no share target configured")
	}
	return s.sharer.Share(ctx, share.Payload{
		Title: s.chooserTitle,
		MIME:  mimePlainText,
		Text:  s.url,
	})
}
