// Package netcheck answers whether the network looks usable before a fetch starts.
package netcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"
)

// Checker reports network reachability
type Checker interface {
	Available(ctx context.Context) bool
}

// DialChecker considers the network available when a TCP connection to Address succeeds
type DialChecker struct {
	Address string
	Timeout time.Duration
}

func (c DialChecker) Available(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		slog.Debug("network probe failed", "address", c.Address, "error", err)
		return false
	}
	conn.Close()
	return true
}

// Static always returns the same answer
type Static bool

func (s Static) Available(context.Context) bool {
	return bool(s)
}

// AddressFor derives the host:port to probe from a feed endpoint
func AddressFor(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint %q: %w", endpoint, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("endpoint %q: cannot infer port for scheme %q", endpoint, u.Scheme)
		}
	}
	return net.JoinHostPort(host, port), nil
}
