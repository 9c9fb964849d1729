package tui

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/scipunch/blogreader/detail"
	"github.com/scipunch/blogreader/fetcher/types"
	"github.com/scipunch/blogreader/netcheck"
	"github.com/scipunch/blogreader/presenter"
	"github.com/scipunch/blogreader/render"
	"github.com/scipunch/blogreader/share"
)

const (
	listHint   = "number to open, q to quit"
	detailHint = "s to share, b to go back, q to quit"
)

type Options struct {
	Fetcher      types.FeedFetcher
	Checker      netcheck.Checker
	Recorder     presenter.Recorder
	Renderer     render.Renderer
	Sharer       share.Sharer
	Strings      presenter.Strings
	ChooserTitle string
	Count        int

	In  io.Reader
	Out io.Writer
}

// Session runs one list screen and the detail screens opened from it
type Session struct {
	opts      Options
	view      *ListView
	presenter *presenter.Presenter
	pending   *detail.Screen
}

func NewSession(opts Options) *Session {
	s := &Session{opts: opts, view: NewListView(opts.Out)}
	s.presenter = presenter.New(presenter.Options{
		Fetcher:   opts.Fetcher,
		Checker:   opts.Checker,
		View:      s.view,
		Navigator: s,
		Strings:   opts.Strings,
		Count:     opts.Count,
		Recorder:  opts.Recorder,
	})
	return s
}

// OpenDetail queues the detail screen for url; Run shows it after the current input line
func (s *Session) OpenDetail(url string) error {
	s.pending = detail.New(url, s.opts.Renderer, s.opts.Sharer, s.opts.ChooserTitle)
	return nil
}

func (s *Session) Presenter() *presenter.Presenter {
	return s.presenter
}

// Run drives the session until the user quits, input ends or ctx is cancelled
func (s *Session) Run(ctx context.Context) error {
	defer s.presenter.Close()

	lines := newLineReader(s.opts.In)
	defer lines.stop()

	if _, err := s.presenter.Open(ctx); err != nil {
		return err
	}

	if s.presenter.State() == presenter.Loading {
		select {
		case res := <-s.presenter.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.presenter.Deliver(ctx, res)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		if s.presenter.State() != presenter.Populated {
			// nothing to select on an idle or errored screen
			return nil
		}
		s.view.Prompt(listHint)

		line, ok, err := lines.Read(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch {
		case line == "":
			continue
		case isQuit(line):
			return nil
		case line == "l" || line == "ls":
			s.view.Redraw()
			continue
		}

		n, err := strconv.Atoi(line)
		if err != nil {
			s.view.Failure("unknown command %q", line)
			continue
		}
		if err := s.presenter.Select(n - 1); err != nil {
			s.view.Failure("%v", err)
			continue
		}
		if s.pending == nil {
			continue
		}
		screen := s.pending
		s.pending = nil
		quit, err := s.runDetail(ctx, screen, lines)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		s.view.Redraw()
	}
}

// runDetail shows one detail screen; it reports whether the user asked to quit
func (s *Session) runDetail(ctx context.Context, screen *detail.Screen, lines *lineReader) (bool, error) {
	page, err := screen.Load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("failed to render post", "url", screen.URL(), "error", err)
		s.view.Failure("could not load the post, it can still be shared")
		page = render.Page{}
	}
	s.view.ShowPage(screen.URL(), page)

	for {
		s.view.Prompt(detailHint)
		line, ok, err := lines.Read(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}

		switch {
		case line == "":
		case isQuit(line):
			return true, nil
		case line == "b" || line == "back":
			return false, nil
		case line == "s" || line == "share":
			if err := screen.Share(ctx); err != nil {
				slog.Warn("share failed", "url", screen.URL(), "error", err)
				s.view.Failure("share failed: %v", err)
				continue
			}
			s.view.Success("shared %s", screen.URL())
		default:
			s.view.Failure("unknown command %q", line)
		}
	}
}

func isQuit(line string) bool {
	line = strings.TrimSpace(line)
	return line == "q" || line == "quit" || line == "exit"
}

// lineReader reads one input line per request so that stdin stays free for
// other prompts (e.g. a Telegram login) between requests
type lineReader struct {
	want    chan struct{}
	lines   chan string
	done    chan struct{}
	pending bool
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		want:  make(chan struct{}),
		lines: make(chan string, 1),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(lr.done)
		defer close(lr.lines)
		if r == nil {
			return
		}
		br := bufio.NewReader(r)
		for range lr.want {
			line, err := br.ReadString('\n')
			if line != "" {
				lr.lines <- strings.TrimRight(line, "\r\n")
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Debug("input closed", "error", err)
				}
				return
			}
		}
	}()
	return lr
}

// Next requests a line unless one is already outstanding
func (lr *lineReader) Next() <-chan string {
	if !lr.pending {
		select {
		case lr.want <- struct{}{}:
			lr.pending = true
		case <-lr.done:
		}
	}
	return lr.lines
}

// stop lets the reader goroutine exit after any read in progress
func (lr *lineReader) stop() {
	close(lr.want)
}

func (lr *lineReader) consumed() {
	lr.pending = false
}

// Read waits for the next trimmed line; ok is false once input has ended
func (lr *lineReader) Read(ctx context.Context) (string, bool, error) {
	select {
	case line, ok := <-lr.Next():
		lr.consumed()
		return strings.TrimSpace(line), ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
