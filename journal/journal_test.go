package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scipunch/blogreader/fetcher/types"
	"github.com/scipunch/blogreader/presenter"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "journal.db")

	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("journal database file was not created")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := j.AddFetch(ctx, FetchEntry{Endpoint: "http://blog/api", Count: 20, Kind: "ok"}); err != nil {
		t.Fatalf("AddFetch failed: %v", err)
	}
	j.Close()

	j, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Fetches != 1 {
		t.Errorf("fetches = %d after reopen, want 1", stats.Fetches)
	}
}

func TestFeedRecorder_RecordFetch(t *testing.T) {
	j := openTest(t)
	rec := FeedRecorder{Journal: j, Endpoint: "http://blog/api", Count: 20}
	started := time.Unix(1700000000, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := []presenter.Outcome{
		{Kind: types.KindOK, Posts: 20, Started: started, Duration: 150 * time.Millisecond},
		{Kind: types.KindProtocol, StatusCode: 404, Err: errors.New("status 404"), Started: started.Add(time.Minute)},
	}
	for _, o := range outcomes {
		if err := rec.RecordFetch(ctx, o); err != nil {
			t.Fatalf("RecordFetch failed: %v", err)
		}
	}

	entries, err := j.RecentFetches(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentFetches failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	newest := entries[0]
	if newest.Kind != "protocol_failure" || newest.StatusCode != 404 || newest.Error != "status 404" {
		t.Errorf("unexpected newest entry: %+v", newest)
	}
	oldest := entries[1]
	if oldest.Kind != "ok" || oldest.Posts != 20 || oldest.Count != 20 || oldest.Endpoint != "http://blog/api" {
		t.Errorf("unexpected oldest entry: %+v", oldest)
	}
	if oldest.Duration != 150*time.Millisecond {
		t.Errorf("duration = %v, want 150ms", oldest.Duration)
	}
	if !oldest.Started.Equal(started) {
		t.Errorf("started = %v, want %v", oldest.Started, started)
	}
}

func TestRecentFetches_Limit(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i := 0; i < 5; i++ {
		if err := j.AddFetch(ctx, FetchEntry{Endpoint: "e", Count: i + 1, Kind: "ok", Started: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("AddFetch failed: %v", err)
		}
	}

	entries, err := j.RecentFetches(ctx, 3)
	if err != nil {
		t.Fatalf("RecentFetches failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Count != 5 || entries[2].Count != 3 {
		t.Errorf("entries not newest first: %+v", entries)
	}
}

func TestStatsAndClear(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	j.now = func() time.Time { return time.Unix(1600000000, 0) }

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Fetches != 0 || stats.Shares != 0 || !stats.OldestEntry.IsZero() {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	_ = j.AddFetch(ctx, FetchEntry{Endpoint: "e", Kind: "ok", Started: time.Unix(1700000000, 0)})
	_ = j.AddFetch(ctx, FetchEntry{Endpoint: "e", Kind: "parse_failure", Started: time.Unix(1700000100, 0)})
	if err := j.RecordShare(ctx, "https://blog/1", "stdout", nil); err != nil {
		t.Fatalf("RecordShare failed: %v", err)
	}
	_ = j.RecordShare(ctx, "https://blog/2", "command", errors.New("exit 1"))

	stats, err = j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Fetches != 2 || stats.Failures != 1 || stats.Shares != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if !stats.OldestEntry.Equal(time.Unix(1600000000, 0)) {
		t.Errorf("oldest = %v", stats.OldestEntry)
	}

	if err := j.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats, _ = j.Stats(ctx)
	if stats.Fetches != 0 || stats.Shares != 0 {
		t.Errorf("expected empty journal after Clear, got %+v", stats)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 4, "this..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.max); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
		}
	}
}
