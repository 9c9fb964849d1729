package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/scipunch/blogreader/config"
	"github.com/scipunch/blogreader/fetcher/types"
)

const defaultUserAgent = "blogreader/1.0 (+https://github.com/scipunch/blogreader)"

// NewHTTPClient builds the client shared by the fetchers and the http renderer
func NewHTTPClient(cfg config.Network) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: &userAgentTransport{base: transport, ua: userAgent(cfg)},
		Timeout:   cfg.RequestTimeout(),
	}
}

func userAgent(cfg config.Network) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return defaultUserAgent
}

type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

// getBody performs a single GET and returns the whole body of a 200 response.
// The body is read until EOF regardless of Content-Length, capped at maxBytes.
func getBody(ctx context.Context, client *http.Client, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, types.Failure(types.KindTransport, fmt.Errorf("failed to build request for %s: %w", rawURL, err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.Failure(types.KindTransport, fmt.Errorf("request to %s failed: %w", rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &types.FetchError{
			Kind:       types.KindProtocol,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s returned %s", rawURL, resp.Status),
		}
	}

	if resp.ContentLength > 0 && maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, types.Failure(types.KindParse, fmt.Errorf("response of %d bytes exceeds limit of %d", resp.ContentLength, maxBytes))
	}

	reader := io.Reader(resp.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, types.Failure(types.KindTransport, fmt.Errorf("failed to read response body: %w", err))
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, types.Failure(types.KindParse, fmt.Errorf("response body exceeds limit of %d bytes", maxBytes))
	}
	if resp.ContentLength >= 0 && int64(len(body)) != resp.ContentLength {
		slog.Debug("content length mismatch", "url", rawURL, "declared", resp.ContentLength, "read", len(body))
	}

	return body, nil
}

// logFailure records the failure kind for diagnostics; callers only see the Result
func logFailure(source, rawURL string, err error) {
	kind := types.KindOf(err)
	attrs := []any{"source", source, "url", rawURL, "kind", kind.String(), "error", err}
	var fe *types.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		attrs = append(attrs, "status", fe.StatusCode)
	}
	slog.Warn("feed fetch failed", attrs...)
}
