package share

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Payload is a plain-text share request
type Payload struct {
	Title string // Shown by targets that present a chooser
	MIME  string
	Text  string
}

// Sharer hands a payload to some outside destination
type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

// Text writes the payload to W
type Text struct {
	W io.Writer
}

func (t Text) Share(_ context.Context, p Payload) error {
	var err error
	if p.Title != "" {
		_, err = fmt.Fprintf(t.W, "%s\n%s\n", p.Title, p.Text)
	} else {
		_, err = fmt.Fprintln(t.W, p.Text)
	}
	if err != nil {
		return fmt.Errorf("failed to write shared text: %w", err)
	}
	return nil
}

// Command pipes the payload text into an external program, e.g. wl-copy or pbcopy
type Command struct {
	Argv []string
}

func (c Command) Share(ctx context.Context, p Payload) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("share command is empty")
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdin = strings.NewReader(p.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("share command %q failed: %w: %s", c.Argv[0], err, strings.TrimSpace(stderr.String()))
	}
	slog.Debug("shared through command", "command", c.Argv[0])
	return nil
}

// Recorder persists share attempts
type Recorder interface {
	RecordShare(ctx context.Context, url, target string, shareErr error) error
}

type recording struct {
	next   Sharer
	target string
	rec    Recorder
}

// Recording wraps s so that every share attempt is recorded under target
func Recording(s Sharer, target string, rec Recorder) Sharer {
	if rec == nil {
		return s
	}
	return &recording{next: s, target: target, rec: rec}
}

func (r *recording) Share(ctx context.Context, p Payload) error {
	err := r.next.Share(ctx, p)
	if recErr := r.rec.RecordShare(ctx, p.Text, r.target, err); recErr != nil {
		slog.Warn("failed to record share", "error", recErr)
	}
	return err
}
