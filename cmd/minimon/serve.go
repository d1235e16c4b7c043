package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/minimon/internal/client/carelink"
	"github.com/garrettladley/minimon/internal/client/proxy"
	"github.com/garrettladley/minimon/internal/config"
	"github.com/garrettladley/minimon/internal/credentials"
	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/history"
	"github.com/garrettladley/minimon/internal/paths"
	"github.com/garrettladley/minimon/internal/poller"
	"github.com/garrettladley/minimon/internal/pump"
	xredis "github.com/garrettladley/minimon/internal/redis"
	"github.com/garrettladley/minimon/internal/server"
	"github.com/garrettladley/minimon/internal/server/handler"
	"github.com/garrettladley/minimon/internal/snapshot"
	"github.com/garrettladley/minimon/internal/storage"
	"github.com/garrettladley/minimon/internal/supervisor"
	"github.com/garrettladley/minimon/internal/version"
	"github.com/garrettladley/minimon/internal/xslog"
	"github.com/garrettladley/minimon/internal/xsync"
)

const (
	keyPort        = "port"
	keyEnv         = "env"
	keyDevelopment = "development"
	keyProxyURL    = "proxy_url"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server (default)",
		Long:  "Polls the CareLink proxy, keeps the vendor session alive and serves the web dashboard.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	logger.InfoContext(ctx, "starting minimon",
		xslog.Version(),
		slog.Bool(keyDevelopment, version.IsDevelopment(version.Get())),
		slog.String(keyEnv, string(cfg.Env)),
		slog.String(keyPort, cfg.Port),
		slog.String(keyProxyURL, cfg.Proxy.URL),
	)

	backend, err := initBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close backend", xslog.Error(err))
		}
	}()

	hist, err := initHistory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close history", xslog.Error(err))
		}
	}()

	store := credentials.NewStore(cfg.TokenFile)

	var (
		telemetry snapshot.Cell[pump.Telemetry]
		graph     snapshot.Cell[pump.Graph]
	)

	p := poller.New(
		proxy.New(cfg.Proxy.URL, proxy.WithTimeout(cfg.Poll.Timeout)),
		&telemetry,
		&graph,
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithTimeout(cfg.Poll.Timeout),
		poller.WithMirror(backend),
		poller.WithHistory(hist, cfg.History.Retention),
		poller.WithLogger(logger),
	)
	if err := p.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "failed to restore snapshots", xslog.Error(err))
	}

	sup, err := initSupervisor(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize proxy supervisor: %w", err)
	}
	var restarter handler.ProxyRestarter
	if sup != nil {
		restarter = sup
		if err := sup.EnsureRunning(ctx); err != nil {
			logger.WarnContext(ctx, "failed to start proxy", xslog.Error(err))
		}
	}

	loop := xsync.New(carelinkFactory(cfg.CareLink, store, logger), store, loopConfig(cfg.CareLink), logger)

	routes := server.Routes(server.Deps{
		Pump:  handler.NewPump(&telemetry, &graph, format.NewFormatter(time.Local, format.WithLogger(logger))),
		Login: handler.NewLogin(store, restarter),
		Health: handler.NewHealth(map[string]handler.Pinger{
			backend.Name(): backend,
			"history":      hist,
		}),
		History: handler.NewHistory(hist),
		Limiter: backend,
		Logger:  logger,
	})
	srv := server.New(":"+cfg.Port, routes)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(p.Run(gctx)) })
	g.Go(func() error { return server.Run(gctx, srv, logger) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.InfoContext(ctx, "minimon stopped")
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func initBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Backend, error) {
	limit := storage.RateLimitConfig{Rate: cfg.RateLimit.Limit, Burst: cfg.RateLimit.Burst}

	if cfg.Redis.URL == "" {
		logger.InfoContext(ctx, "initializing in-memory backend")
		return storage.NewMemoryBackend(limit), nil
	}

	logger.InfoContext(ctx, "initializing Redis backend")
	client, err := xredis.New(ctx, xredis.Config{URL: cfg.Redis.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis client: %w", err)
	}
	return storage.NewRedisBackend(storage.RedisConfig{Client: client, RateLimit: limit}), nil
}

func initHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) (*history.Store, error) {
	path, err := paths.History(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "opening glucose history", xslog.Path(path))
	return history.Open(ctx, path, history.WithLogger(logger))
}

// initSupervisor returns nil when the proxy is managed elsewhere.
func initSupervisor(cfg config.Config, logger *slog.Logger) (*supervisor.Supervisor, error) {
	if !cfg.Proxy.Managed {
		return nil, nil
	}

	addr, err := cfg.Proxy.Addr()
	if err != nil {
		return nil, err
	}

	proc, err := supervisor.NewExecProcess(supervisor.ExecConfig{
		Command:     cfg.Proxy.Command,
		Dir:         cfg.Proxy.Dir,
		Addr:        addr,
		Match:       cfg.Proxy.Match,
		StopTimeout: cfg.Proxy.StopTimeout,
		KillTimeout: cfg.Proxy.KillTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return supervisor.New(proc,
		supervisor.WithStartTimeout(cfg.Proxy.StartTimeout),
		supervisor.WithRestartDelay(cfg.Proxy.RestartDelay),
		supervisor.WithLogger(logger),
	), nil
}

func carelinkFactory(cfg config.CareLink, store *credentials.Store, logger *slog.Logger) xsync.ClientFactory {
	return func() (xsync.Vendor, error) {
		client, err := carelink.New(store,
			carelink.WithBaseURL(cfg.BaseURL),
			carelink.WithTokenURL(cfg.TokenURL),
			carelink.WithTimeout(cfg.Timeout),
			carelink.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func loopConfig(cfg config.CareLink) xsync.Config {
	return xsync.Config{
		UpdateInterval:  cfg.UpdateInterval,
		RetryInterval:   cfg.RetryInterval,
		ErrorInterval:   cfg.ErrorInterval,
		Slack:           cfg.Slack,
		LoginBackoff:    cfg.LoginBackoff,
		LoginMaxBackoff: cfg.LoginMaxBackoff,
	}
}
