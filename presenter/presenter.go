// Package presenter drives the post list screen: reachability check, one
// asynchronous fetch, rendering of the outcome and row selection.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scipunch/blogreader/fetcher/types"
	"github.com/scipunch/blogreader/netcheck"
)

var (
	ErrAlreadyOpened = errors.New("screen already opened")
	ErrNotPopulated  = errors.New("list is not populated")
	ErrNoSuchPost    = errors.New("no post at that position")
)

type State int

const (
	Idle State = iota
	Loading
	Populated
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is the list screen as seen by the presenter
type View interface {
	ShowProgress()
	HideProgress()
	// ShowNotice displays a transient message
	ShowNotice(message string)
	// ShowError displays a modal error
	ShowError(title, message string)
	// SetEmptyText replaces the text shown while the list has no rows
	SetEmptyText(text string)
	Bind(records []Record)
}

// Navigator opens the detail screen for a post URL
type Navigator interface {
	OpenDetail(url string) error
}

// Strings are the texts the presenter hands to the view
type Strings struct {
	NetworkUnavailable string
	ErrorTitle         string
	ErrorMessage       string
	NoItems            string
}

// Outcome describes one finished (or refused) fetch for diagnostics
type Outcome struct {
	Kind       types.Kind
	StatusCode int
	Posts      int
	Err        error
	Started    time.Time
	Duration   time.Duration
}

// Recorder persists fetch outcomes; failures to record never change screen state
type Recorder interface {
	RecordFetch(ctx context.Context, o Outcome) error
}

type Options struct {
	Fetcher   types.FeedFetcher
	Checker   netcheck.Checker
	View      View
	Navigator Navigator
	Strings   Strings
	Count     int
	Recorder  Recorder // optional
}

// Presenter owns the state of one list screen instance.
// Every method except the fetch goroutine runs on the interaction goroutine.
type Presenter struct {
	opts    Options
	state   State
	doc     *types.Document
	records []Record

	done    chan types.Result
	cancel  context.CancelFunc
	started time.Time
	opened  bool
	closed  bool
}

func New(opts Options) *Presenter {
	if opts.Checker == nil {
		opts.Checker = netcheck.Static(true)
	}
	return &Presenter{opts: opts, state: Idle}
}

// Open checks reachability and, when the network is up, starts the single
// fetch of this screen. It returns the state entered.
func (p *Presenter) Open(ctx context.Context) (State, error) {
	if p.opened || p.closed {
		return p.state, ErrAlreadyOpened
	}
	p.opened = true

	if !p.opts.Checker.Available(ctx) {
		slog.Info("network unavailable, not fetching")
		p.opts.View.ShowNotice(p.opts.Strings.NetworkUnavailable)
		p.record(ctx, Outcome{
			Kind:    types.KindNetworkUnreachable,
			Err:     errors.New("network unavailable"),
			Started: time.Now(),
		})
		return p.state, nil
	}

	p.opts.View.ShowProgress()
	p.state = Loading
	p.started = time.Now()

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan types.Result, 1)

	go func(fetcher types.FeedFetcher, count int, done chan<- types.Result) {
		done <- fetcher.Fetch(fetchCtx, count)
	}(p.opts.Fetcher, p.opts.Count, p.done)

	return p.state, nil
}

// Done yields the fetch result exactly once. It stays nil unless Open started a fetch.
func (p *Presenter) Done() <-chan types.Result {
	return p.done
}

// Deliver applies a fetch result to the screen. Results arriving outside
// Loading or after Close are discarded.
func (p *Presenter) Deliver(ctx context.Context, res types.Result) State {
	if p.closed || p.state != Loading {
		slog.Debug("discarding fetch result", "state", p.state, "closed", p.closed)
		return p.state
	}
	if p.cancel != nil {
		p.cancel()
	}

	outcome := Outcome{
		Kind:       res.Kind(),
		StatusCode: res.StatusCode(),
		Err:        res.Err,
		Started:    p.started,
		Duration:   time.Since(p.started),
	}

	p.opts.View.HideProgress()

	if !res.OK() {
		slog.Error("feed unavailable", "kind", outcome.Kind.String(), "status", outcome.StatusCode, "error", res.Err)
		p.opts.View.ShowError(p.opts.Strings.ErrorTitle, p.opts.Strings.ErrorMessage)
		p.opts.View.SetEmptyText(p.opts.Strings.NoItems)
		p.state = Errored
		p.record(ctx, outcome)
		return p.state
	}

	p.doc = res.Document
	p.records = Records(res.Document)
	outcome.Posts = len(p.records)
	p.opts.View.Bind(p.Records())
	p.state = Populated
	slog.Info("list populated", "posts", outcome.Posts, "took", outcome.Duration)
	p.record(ctx, outcome)
	return p.state
}

// Select opens the detail screen of the post at index i
func (p *Presenter) Select(i int) error {
	if p.state != Populated {
		return ErrNotPopulated
	}
	if i < 0 || i >= len(p.doc.Posts) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchPost, i+1, len(p.doc.Posts))
	}
	url := p.doc.Posts[i].URL
	slog.Debug("opening post", "index", i, "url", url)
	if err := p.opts.Navigator.OpenDetail(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// Close cancels an in-flight fetch; its result will be discarded
func (p *Presenter) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Presenter) State() State {
	return p.state
}

// Records returns a copy of the bound display records
func (p *Presenter) Records() []Record {
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

func (p *Presenter) record(ctx context.Context, o Outcome) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.RecordFetch(ctx, o); err != nil {
		slog.Warn("failed to record fetch outcome", "error", err)
	}
}
