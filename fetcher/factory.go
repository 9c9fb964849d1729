package fetcher

import (
	"fmt"
	"net/http"

	"github.com/scipunch/blogreader/config"
	"github.com/scipunch/blogreader/fetcher/types"
)

// New creates the fetcher matching the configured feed type
func New(cfg config.Feed, client *http.Client) (types.FeedFetcher, error) {
	switch cfg.T {
	case config.JSON, "":
		return NewJSONFetcher(cfg.Endpoint, client, cfg.MaxBodyBytes), nil
	case config.RSS:
		return NewRSSFetcher(cfg.Endpoint, client, cfg.MaxBodyBytes), nil
	default:
		return nil, fmt.Errorf("unknown feed type: %s", cfg.T)
	}
}
