package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"

	"github.com/scipunch/blogreader/share"
)

// Sharer sends the shared text as a Telegram message, to Saved Messages unless Peer is set
type Sharer struct {
	opts Options
	peer string
}

// NewSharer validates peer and returns a Sharer using opts for the session
func NewSharer(opts Options, peer string) (*Sharer, error) {
	if opts.AppID == 0 || opts.AppHash == "" {
		return nil, fmt.Errorf("telegram app id and hash are required")
	}
	s := &Sharer{opts: opts}
	if strings.TrimSpace(peer) != "" {
		username, err := ParsePeer(peer)
		if err != nil {
			return nil, err
		}
		s.peer = username
	}
	return s, nil
}

// Peer returns the normalized recipient username, empty for Saved Messages
func (s *Sharer) Peer() string {
	return s.peer
}

func (s *Sharer) Share(ctx context.Context, p share.Payload) error {
	return RunWithAuth(ctx, s.opts, func(ctx context.Context, client *telegram.Client) error {
		sender := message.NewSender(client.API())
		var err error
		if s.peer == "" {
			_, err = sender.Self().Text(ctx, p.Text)
		} else {
			_, err = sender.Resolve("@"+s.peer).Text(ctx, p.Text)
		}
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		slog.Info("shared to telegram", "peer", s.describePeer())
		return nil
	})
}

func (s *Sharer) describePeer() string {
	if s.peer == "" {
		return "saved messages"
	}
	return "@" + s.peer
}

// ParsePeer extracts a username from "@name", "t.me/name" or "https://t.me/name"
func ParsePeer(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "t.me/")
	raw = strings.TrimPrefix(raw, "@")
	raw = strings.TrimSuffix(raw, "/")

	if raw == "" {
		return "", fmt.Errorf("empty telegram username")
	}
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("invalid telegram peer format: %s", raw)
	}
	return raw, nil
}
