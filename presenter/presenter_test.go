package presenter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scipunch/blogreader/fetcher"
	"github.com/scipunch/blogreader/fetcher/types"
	"github.com/scipunch/blogreader/netcheck"
)

// fakeView records every call made by the presenter
type fakeView struct {
	progressShown  int
	progressHidden int
	notices        []string
	errors         [][2]string
	emptyText      string
	bound          []Record
	bindCalls      int
}

func (v *fakeView) ShowProgress()             { v.progressShown++ }
func (v *fakeView) HideProgress()             { v.progressHidden++ }
func (v *fakeView) ShowNotice(message string) { v.notices = append(v.notices, message) }
func (v *fakeView) ShowError(title, message string) {
	v.errors = append(v.errors, [2]string{title, message})
}
func (v *fakeView) SetEmptyText(text string) { v.emptyText = text }
func (v *fakeView) Bind(records []Record) {
	v.bindCalls++
	v.bound = records
}

type fakeNavigator struct {
	opened []string
	err    error
}

func (n *fakeNavigator) OpenDetail(url string) error {
	n.opened = append(n.opened, url)
	return n.err
}

// stubFetcher returns a canned result and counts calls
type stubFetcher struct {
	result types.Result
	calls  atomic.Int32
	count  atomic.Int32
}

func (f *stubFetcher) Fetch(ctx context.Context, count int) types.Result {
	f.calls.Add(1)
	f.count.Store(int32(count))
	return f.result
}

// blockingFetcher waits until its context is cancelled
type blockingFetcher struct {
	started chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, count int) types.Result {
	close(f.started)
	<-ctx.Done()
	return types.Failed(types.Failure(types.KindTransport, ctx.Err()))
}

type memRecorder struct {
	outcomes []Outcome
}

func (r *memRecorder) RecordFetch(ctx context.Context, o Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

var testStrings = Strings{
	NetworkUnavailable: "Network is unavailable!",
	ErrorTitle:         "Oops! Sorry!",
	ErrorMessage:       "There was an error getting data from the blog.",
	NoItems:            "No items to display.",
}

type harness struct {
	p    *Presenter
	view *fakeView
	nav  *fakeNavigator
	rec  *memRecorder
}

func newHarness(f types.FeedFetcher, checker netcheck.Checker) harness {
	h := harness{view: &fakeView{}, nav: &fakeNavigator{}, rec: &memRecorder{}}
	h.p = New(Options{
		Fetcher:   f,
		Checker:   checker,
		View:      h.view,
		Navigator: h.nav,
		Strings:   testStrings,
		Count:     20,
		Recorder:  h.rec,
	})
	return h
}

// run opens the presenter and delivers the fetch result the way the interaction loop does
func (h harness) run(t *testing.T) State {
	t.Helper()
	ctx := context.Background()
	state, err := h.p.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if state != Loading {
		return state
	}
	select {
	case res := <-h.p.Done():
		return h.p.Deliver(ctx, res)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
	}
	return h.p.State()
}

func doc(posts ...types.Post) *types.Document {
	return &types.Document{Posts: posts}
}

func TestPresenter_Populated(t *testing.T) {
	f := &stubFetcher{result: types.Succeeded(doc(
		types.Post{Title: "Hello &amp; World", Author: "Ben &quot;B&quot; Jakuben", URL: "https://blog/1"},
		types.Post{Title: "<em>Second</em> post", Author: "Amit", URL: "https://blog/2"},
		types.Post{Title: "Third", Author: "Zac &lt;3", URL: "https://blog/3"},
	))}
	h := newHarness(f, netcheck.Static(true))

	if got := h.run(t); got != Populated {
		t.Fatalf("state = %v, want populated", got)
	}

	want := []Record{
		{Title: "Hello & World", Author: `Ben "B" Jakuben`},
		{Title: "Second post", Author: "Amit"},
		{Title: "Third", Author: "Zac <3"},
	}
	if len(h.view.bound) != len(want) {
		t.Fatalf("bound %d records, want %d", len(h.view.bound), len(want))
	}
	for i := range want {
		if h.view.bound[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, h.view.bound[i], want[i])
		}
	}
	if h.view.progressShown != 1 || h.view.progressHidden != 1 {
		t.Errorf("progress shown/hidden = %d/%d, want 1/1", h.view.progressShown, h.view.progressHidden)
	}
	if len(h.view.errors) != 0 {
		t.Errorf("unexpected error dialogs: %v", h.view.errors)
	}
	if f.count.Load() != 20 {
		t.Errorf("fetch count = %d, want 20", f.count.Load())
	}
	if len(h.rec.outcomes) != 1 || h.rec.outcomes[0].Kind != types.KindOK || h.rec.outcomes[0].Posts != 3 {
		t.Errorf("unexpected recorded outcomes: %+v", h.rec.outcomes)
	}
}

func TestPresenter_SelectResolvesSameIndex(t *testing.T) {
	urls := []string{"https://blog/a", "https://blog/b", "https://blog/c", "https://blog/d"}
	var posts []types.Post
	for _, u := range urls {
		posts = append(posts, types.Post{Title: u, Author: "x", URL: u})
	}
	h := newHarness(&stubFetcher{result: types.Succeeded(doc(posts...))}, netcheck.Static(true))
	h.run(t)

	for i, u := range urls {
		if err := h.p.Select(i); err != nil {
			t.Fatalf("Select(%d) failed: %v", i, err)
		}
		if got := h.nav.opened[len(h.nav.opened)-1]; got != u {
			t.Errorf("Select(%d) opened %q, want %q", i, got, u)
		}
	}

	for _, i := range []int{-1, len(urls)} {
		if err := h.p.Select(i); !errors.Is(err, ErrNoSuchPost) {
			t.Errorf("Select(%d) error = %v, want ErrNoSuchPost", i, err)
		}
	}
}

func TestPresenter_SelectNavigatorError(t *testing.T) {
	h := newHarness(&stubFetcher{result: types.Succeeded(doc(types.Post{Title: "t", Author: "a", URL: "u"}))}, netcheck.Static(true))
	h.nav.err = errors.New("renderer crashed")
	h.run(t)

	if err := h.p.Select(0); err == nil {
		t.Error("expected navigator error to be returned")
	}
	if h.p.State() != Populated {
		t.Errorf("state = %v, want populated", h.p.State())
	}
}

func TestPresenter_EmptyFeed(t *testing.T) {
	h := newHarness(&stubFetcher{result: types.Succeeded(doc())}, netcheck.Static(true))

	if got := h.run(t); got != Populated {
		t.Fatalf("state = %v, want populated", got)
	}
	if h.view.bindCalls != 1 || len(h.view.bound) != 0 {
		t.Errorf("expected one bind with zero records, got %d binds of %d", h.view.bindCalls, len(h.view.bound))
	}
	if h.view.emptyText != "" {
		t.Errorf("empty text should stay untouched, got %q", h.view.emptyText)
	}
	if len(h.view.errors) != 0 {
		t.Error("an empty feed is not an error")
	}
	if err := h.p.Select(0); !errors.Is(err, ErrNoSuchPost) {
		t.Errorf("Select(0) error = %v, want ErrNoSuchPost", err)
	}
}

func TestPresenter_FailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind types.Kind
	}{
		{"transport", types.Failure(types.KindTransport, errors.New("connection refused")), types.KindTransport},
		{"protocol", &types.FetchError{Kind: types.KindProtocol, StatusCode: 404, Err: errors.New("not found")}, types.KindProtocol},
		{"parse", types.Failure(types.KindParse, errors.New("unexpected EOF")), types.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&stubFetcher{result: types.Failed(tt.err)}, netcheck.Static(true))

			if got := h.run(t); got != Errored {
				t.Fatalf("state = %v, want errored", got)
			}
			if len(h.view.errors) != 1 {
				t.Fatalf("error dialogs = %d, want exactly 1", len(h.view.errors))
			}
			if h.view.errors[0] != [2]string{testStrings.ErrorTitle, testStrings.ErrorMessage} {
				t.Errorf("dialog = %v", h.view.errors[0])
			}
			if h.view.emptyText != testStrings.NoItems {
				t.Errorf("empty text = %q, want %q", h.view.emptyText, testStrings.NoItems)
			}
			if h.view.progressHidden != 1 {
				t.Errorf("progress hidden %d times, want 1", h.view.progressHidden)
			}
			if h.view.bindCalls != 0 {
				t.Error("nothing should be bound on failure")
			}
			if len(h.rec.outcomes) != 1 || h.rec.outcomes[0].Kind != tt.kind {
				t.Errorf("recorded outcomes = %+v, want kind %v", h.rec.outcomes, tt.kind)
			}
			if err := h.p.Select(0); !errors.Is(err, ErrNotPopulated) {
				t.Errorf("Select in errored state = %v, want ErrNotPopulated", err)
			}

			// A late duplicate delivery must not show a second dialog
			h.p.Deliver(context.Background(), types.Failed(tt.err))
			if len(h.view.errors) != 1 {
				t.Errorf("error dialogs after redelivery = %d, want 1", len(h.view.errors))
			}
		})
	}
}

func TestPresenter_NetworkUnavailable(t *testing.T) {
	f := &stubFetcher{result: types.Succeeded(doc())}
	h := newHarness(f, netcheck.Static(false))

	if got := h.run(t); got != Idle {
		t.Fatalf("state = %v, want idle", got)
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.calls.Load())
	}
	if h.view.progressShown != 0 {
		t.Error("progress must not be shown when the network is unavailable")
	}
	if len(h.view.notices) != 1 || h.view.notices[0] != testStrings.NetworkUnavailable {
		t.Errorf("notices = %v", h.view.notices)
	}
	if h.view.bindCalls != 0 || len(h.view.errors) != 0 {
		t.Error("list must stay empty with no error dialog")
	}
	if h.p.Done() != nil {
		t.Error("Done should stay nil when no fetch was started")
	}
	if len(h.rec.outcomes) != 1 || h.rec.outcomes[0].Kind != types.KindNetworkUnreachable {
		t.Errorf("recorded outcomes = %+v", h.rec.outcomes)
	}
}

func TestPresenter_OpenTwice(t *testing.T) {
	f := &stubFetcher{result: types.Succeeded(doc())}
	h := newHarness(f, netcheck.Static(true))
	h.run(t)

	if _, err := h.p.Open(context.Background()); !errors.Is(err, ErrAlreadyOpened) {
		t.Errorf("second Open error = %v, want ErrAlreadyOpened", err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetcher called %d times, want 1", f.calls.Load())
	}
}

func TestPresenter_CloseCancelsAndDiscards(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{})}
	h := newHarness(f, netcheck.Static(true))
	ctx := context.Background()

	if state, err := h.p.Open(ctx); err != nil || state != Loading {
		t.Fatalf("Open = %v, %v", state, err)
	}
	<-f.started
	h.p.Close()
	h.p.Close()

	select {
	case res := <-h.p.Done():
		if res.Kind() != types.KindTransport {
			t.Errorf("cancelled fetch kind = %v", res.Kind())
		}
		h.p.Deliver(ctx, res)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not cancel the fetch")
	}

	if h.view.progressHidden != 0 || len(h.view.errors) != 0 || h.view.bindCalls != 0 {
		t.Error("result delivered after Close must be discarded")
	}
	if len(h.rec.outcomes) != 0 {
		t.Error("discarded result must not be recorded")
	}
}

func TestPresenter_WithJSONFetcher(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantState  State
		wantTitles []string
	}{
		{"empty posts", http.StatusOK, `{"posts":[]}`, Populated, nil},
		{"not found", http.StatusNotFound, ``, Errored, nil},
		{"entity title", http.StatusOK, `{"posts":[{"title":"Hello &amp; World","author":"A","url":"https://b/1"}]}`, Populated, []string{"Hello & World"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("count") != "20" {
					t.Errorf("count = %q, want 20", r.URL.Query().Get("count"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			h := newHarness(fetcher.NewJSONFetcher(srv.URL+"/api/get_recent_summary/", srv.Client(), 0), netcheck.Static(true))
			if got := h.run(t); got != tt.wantState {
				t.Fatalf("state = %v, want %v", got, tt.wantState)
			}
			if tt.wantState == Errored && h.view.emptyText != testStrings.NoItems {
				t.Errorf("empty text = %q", h.view.emptyText)
			}
			if tt.wantState == Errored && (len(h.rec.outcomes) != 1 || h.rec.outcomes[0].StatusCode != http.StatusNotFound) {
				t.Errorf("expected a recorded 404, got %+v", h.rec.outcomes)
			}
			records := h.p.Records()
			if len(records) != len(tt.wantTitles) {
				t.Fatalf("records = %d, want %d", len(records), len(tt.wantTitles))
			}
			for i, title := range tt.wantTitles {
				if records[i].Title != title {
					t.Errorf("title %d = %q, want %q", i, records[i].Title, title)
				}
			}
		})
	}
}
