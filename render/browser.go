package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/playwright-community/playwright-go"
)

// BrowserRenderer loads the page in headless Chromium so script-built pages
// render before extraction
type BrowserRenderer struct {
	install bool
}

func NewBrowserRenderer(install bool) *BrowserRenderer {
	return &BrowserRenderer{install: install}
}

func (r *BrowserRenderer) Render(ctx context.Context, pageURL string) (Page, error) {
	var page Page

	u, err := url.Parse(pageURL)
	if err != nil {
		return page, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	if r.install {
		if err := playwright.Install(); err != nil {
			return page, fmt.Errorf("could not install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return page, fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch()
	if err != nil {
		return page, fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	tab, err := browser.NewPage()
	if err != nil {
		return page, fmt.Errorf("could not create page: %w", err)
	}
	defer tab.Close()

	// playwright has no context support; give up early if we were cancelled while starting
	if err := ctx.Err(); err != nil {
		return page, err
	}

	slog.Debug("browser renderer navigating", "url", pageURL)
	if _, err = tab.Goto(pageURL); err != nil {
		return page, fmt.Errorf("could not navigate to %s: %w", pageURL, err)
	}

	content, err := tab.Content()
	if err != nil {
		return page, fmt.Errorf("could not read page content: %w", err)
	}

	return Extract([]byte(content), u)
}
