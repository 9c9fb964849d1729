package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/scipunch/blogreader/config"
	"github.com/scipunch/blogreader/fetcher"
	"github.com/scipunch/blogreader/journal"
	"github.com/scipunch/blogreader/netcheck"
	"github.com/scipunch/blogreader/presenter"
	"github.com/scipunch/blogreader/render"
	"github.com/scipunch/blogreader/share"
	"github.com/scipunch/blogreader/share/telegram"
	"github.com/scipunch/blogreader/tui"
)

func main() {
	var cfgPath string
	var count int
	var history int
	var cleanJournal bool
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.IntVar(&count, "count", 0, "number of posts to request (overrides the config)")
	flag.IntVar(&history, "history", 0, "print the last N fetch attempts and exit")
	flag.BoolVar(&cleanJournal, "clean", false, "remove all journal entries")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}
	if count > 0 {
		conf.Feed.Count = count
	}

	level := conf.SlogLevel()
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j, err := journal.Open(conf.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open journal with %v", err)
	}
	defer j.Close()

	// Handle -clean flag
	if cleanJournal {
		if err := j.Clear(ctx); err != nil {
			log.Fatalf("failed to clear journal: %v", err)
		}
		slog.Info("journal cleared successfully")
		return
	}

	if history > 0 {
		if err := printHistory(ctx, j, history); err != nil {
			log.Fatalf("failed to read journal: %v", err)
		}
		return
	}

	client := fetcher.NewHTTPClient(conf.Network)
	feed, err := fetcher.New(conf.Feed, client)
	if err != nil {
		log.Fatalf("failed to initialize fetcher with %s", err)
	}

	renderer, err := render.New(conf.Detail, client)
	if err != nil {
		log.Fatalf("failed to initialize renderer with %s", err)
	}

	sharer, err := newSharer(conf, path.Dir(cfgPath), level)
	if err != nil {
		log.Fatalf("failed to initialize share target with %s", err)
	}

	session := tui.NewSession(tui.Options{
		Fetcher:  feed,
		Checker:  newChecker(conf),
		Recorder: journal.FeedRecorder{Journal: j, Endpoint: conf.Feed.Endpoint, Count: conf.Feed.Count},
		Renderer: renderer,
		Sharer:   share.Recording(sharer, conf.Share.Target, j),
		Strings: presenter.Strings{
			NetworkUnavailable: conf.Strings.NetworkUnavailable,
			ErrorTitle:         conf.Strings.ErrorTitle,
			ErrorMessage:       conf.Strings.ErrorMessage,
			NoItems:            conf.Strings.NoItems,
		},
		ChooserTitle: conf.Strings.ShareChooserTitle,
		Count:        conf.Feed.Count,
		In:           os.Stdin,
		Out:          os.Stdout,
	})

	if err := session.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted by user, exiting gracefully")
			return
		}
		log.Fatalf("session failed with %s", err)
	}
}

func newChecker(conf config.Config) netcheck.Checker {
	if conf.Network.SkipCheck {
		return netcheck.Static(true)
	}
	addr := conf.Network.ProbeAddress
	if addr == "" {
		var err error
		addr, err = netcheck.AddressFor(conf.Feed.Endpoint)
		if err != nil {
			// the fetch itself will report the malformed endpoint
			slog.Warn("cannot derive probe address, skipping reachability check", "error", err)
			return netcheck.Static(true)
		}
	}
	return netcheck.DialChecker{Address: addr, Timeout: conf.Network.ProbeDuration()}
}

func newSharer(conf config.Config, configDir string, level slog.Level) (share.Sharer, error) {
	switch conf.Share.Target {
	case config.Stdout:
		return share.Text{W: os.Stdout}, nil
	case config.Command:
		return share.Command{Argv: conf.Share.Command}, nil
	case config.Telegram:
		creds, err := config.LoadOrPromptTelegramCredentials(config.DefaultCredentialsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load telegram credentials: %w", err)
		}
		s, err := telegram.NewSharer(telegram.Options{
			ConfigDir:   configDir,
			AppID:       creds.AppID,
			AppHash:     creds.AppHash,
			PhoneNumber: creds.PhoneNumber,
			LogLevel:    zapLevel(level),
		}, conf.Share.TelegramPeer)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown share target: %s", conf.Share.Target)
	}
}

// zapLevel keeps gotd's own logging one step quieter than ours
func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func printHistory(ctx context.Context, j *journal.Journal, limit int) error {
	stats, err := j.Stats(ctx)
	if err != nil {
		return err
	}
	entries, err := j.RecentFetches(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("fetches: %d (failed %d), shares: %d", stats.Fetches, stats.Failures, stats.Shares)
	if !stats.OldestEntry.IsZero() {
		fmt.Printf(", since %s", stats.OldestEntry.Format(time.DateTime))
	}
	fmt.Println()
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-19s posts=%-3d took=%s", e.Started.Format(time.DateTime), e.Kind, e.Posts, e.Duration)
		if e.StatusCode != 0 {
			line += fmt.Sprintf(" status=%d", e.StatusCode)
		}
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Println(line)
	}
	return nil
}
