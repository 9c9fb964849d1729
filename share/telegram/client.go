package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	tdauth "github.com/gotd/td/telegram/auth"
)

// ClientRunner is a function that runs with an authenticated client
type ClientRunner func(ctx context.Context, client *telegram.Client) error

// Options configure the Telegram session
type Options struct {
	ConfigDir   string // session file lives here
	AppID       int
	AppHash     string
	PhoneNumber string
	LogLevel    zapcore.Level
}

// RunWithAuth creates a Telegram client, authenticates it, and runs the provided function
func RunWithAuth(ctx context.Context, opts Options, runner ClientRunner) error {
	sessionStorage := &session.FileStorage{
		Path: filepath.Join(opts.ConfigDir, "telegram-session.json"),
	}

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		slog.Warn("telegram rate limit", "retry_after", wait.Duration)
	})

	// gotd logs through zap
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(opts.LogLevel)
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build telegram logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client := telegram.NewClient(opts.AppID, opts.AppHash, telegram.Options{
		SessionStorage: sessionStorage,
		Logger:         logger,
		Middlewares:    []telegram.Middleware{waiter},
	})

	flow := tdauth.NewFlow(
		TerminalUserAuthenticator{PhoneNumber: opts.PhoneNumber},
		tdauth.SendCodeOptions{},
	)

	slog.Debug("starting telegram client connection")

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			if err := client.Auth().IfNecessary(ctx, flow); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			self, err := client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to get self info: %w", err)
			}
			name := self.FirstName
			if self.Username != "" {
				name = fmt.Sprintf("%s (@%s)", name, self.Username)
			}
			slog.Info("telegram authenticated", "as", name)

			return runner(ctx, client)
		})
	})
}
