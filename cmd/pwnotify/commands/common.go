package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmhodges/clock"

	"pwnotify/internal/config"
	"pwnotify/internal/directory"
	"pwnotify/internal/email"
	"pwnotify/internal/service"
)

// newLogger builds the run logger at the configured level.
func newLogger(cfg config.RunConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// newDirectory builds the configured directory source. The returned
// cleanup releases any connection pool and is safe to call exactly once.
func newDirectory(ctx context.Context, cfg config.RunConfig) (directory.Source, func(), error) {
	switch cfg.Directory.Type {
	case "postgres":
		pool, err := directory.Open(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("directory unreachable: %w", err)
		}
		return directory.NewPostgresSource(pool), pool.Close, nil
	default:
		src := &directory.LDAPSource{
			URL:          cfg.Directory.URL,
			BindDN:       cfg.Directory.BindDN,
			BindPassword: cfg.Directory.BindPassword,
			BaseDN:       cfg.Directory.BaseDN,
		}
		return src, func() {}, nil
	}
}

func newMailer(cfg config.RunConfig) *email.SMTPMailer {
	return &email.SMTPMailer{
		Addr:     cfg.SMTPAddr,
		TLSMode:  cfg.SMTPTLSMode,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}
}

// newServiceFn builds the pipeline for a command; tests swap it to
// inject collaborator stubs.
var newServiceFn = newService

// newService wires the pipeline. Reporter may be nil for preflight-only
// use.
func newService(ctx context.Context, cfg config.RunConfig, rep service.RunReporter, logger *slog.Logger) (*service.NotifyService, func(), error) {
	dir, cleanup, err := newDirectory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := &service.NotifyService{
		Config:    cfg,
		Directory: dir,
		Mailer:    newMailer(cfg),
		Reporter:  rep,
		Clock:     clock.New(),
		Logger:    logger,
	}
	return svc, cleanup, nil
}
