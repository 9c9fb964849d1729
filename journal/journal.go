// Package journal keeps a local diagnostics log of fetch and share attempts.
// Nothing in it is ever read back into screen state.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scipunch/blogreader/presenter"
)

//go:embed schema.sql
var schemaSQL string

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// FetchEntry is one row of fetch_log
type FetchEntry struct {
	Endpoint   string
	Count      int
	Kind       string
	StatusCode int
	Posts      int
	Error      string
	Started    time.Time
	Duration   time.Duration
}

// Stats contains journal statistics
type Stats struct {
	Fetches     int
	Failures    int
	Shares      int
	OldestEntry time.Time
}

// Open initializes the journal database at the given path
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j, err := FromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// FromDB applies the schema to an already opened database
func FromDB(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// AddFetch appends a fetch attempt
func (j *Journal) AddFetch(ctx context.Context, e FetchEntry) error {
	started := e.Started
	if started.IsZero() {
		started = j.now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO fetch_log
		(endpoint, requested_count, kind, status_code, posts, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Endpoint, e.Count, e.Kind, e.StatusCode, e.Posts, e.Error, started.Unix(), e.Duration.Milliseconds())
	if err != nil {
		slog.Warn("journal write error", "error", err, "endpoint", truncate(e.Endpoint, 50))
		return err
	}
	return nil
}

// RecordShare appends a share attempt; shareErr may be nil
func (j *Journal) RecordShare(ctx context.Context, url, target string, shareErr error) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO share_log (url, target, error, created_at) VALUES (?, ?, ?, ?)",
		url, target, errString(shareErr), j.now().Unix(),
	)
	if err != nil {
		slog.Warn("journal write error", "error", err, "url", truncate(url, 50))
		return err
	}
	return nil
}

// RecentFetches returns up to limit fetch attempts, newest first
func (j *Journal) RecentFetches(ctx context.Context, limit int) ([]FetchEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT endpoint, requested_count, kind, status_code, posts, error, started_at, duration_ms
		FROM fetch_log ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch log: %w", err)
	}
	defer rows.Close()

	var entries []FetchEntry
	for rows.Next() {
		var (
			e          FetchEntry
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&e.Endpoint, &e.Count, &e.Kind, &e.StatusCode, &e.Posts, &e.Error, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan fetch log: %w", err)
		}
		e.Started = time.Unix(startedAt, 0)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns journal statistics
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetch_log").Scan(&stats.Fetches)
	if err != nil {
		return stats, err
	}

	err = j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetch_log WHERE kind != 'ok'").Scan(&stats.Failures)
	if err != nil {
		return stats, err
	}

	err = j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM share_log").Scan(&stats.Shares)
	if err != nil {
		return stats, err
	}

	var oldestUnix sql.NullInt64
	err = j.db.QueryRowContext(ctx, `
		SELECT MIN(ts) FROM (
			SELECT started_at AS ts FROM fetch_log
			UNION ALL
			SELECT created_at AS ts FROM share_log
		)
	`).Scan(&oldestUnix)
	if err != nil && err != sql.ErrNoRows {
		return stats, err
	}
	if oldestUnix.Valid && oldestUnix.Int64 > 0 {
		stats.OldestEntry = time.Unix(oldestUnix.Int64, 0)
	}

	return stats, nil
}

// Clear removes all journal entries
func (j *Journal) Clear(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, "DELETE FROM fetch_log"); err != nil {
		return fmt.Errorf("failed to clear fetch log: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, "DELETE FROM share_log"); err != nil {
		return fmt.Errorf("failed to clear share log: %w", err)
	}
	return nil
}

// Close closes the journal database
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// FeedRecorder records presenter outcomes for one feed endpoint
type FeedRecorder struct {
	Journal  *Journal
	Endpoint string
	Count    int
}

func (r FeedRecorder) RecordFetch(ctx context.Context, o presenter.Outcome) error {
	// the fetch context may already be cancelled when the screen closes
	ctx = context.WithoutCancel(ctx)
	return r.Journal.AddFetch(ctx, FetchEntry{
		Endpoint:   r.Endpoint,
		Count:      r.Count,
		Kind:       o.Kind.String(),
		StatusCode: o.StatusCode,
		Posts:      o.Posts,
		Error:      errString(o.Err),
		Started:    o.Started,
		Duration:   o.Duration,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
