package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/lokiship/lokiship/internal/config"
	"github.com/lokiship/lokiship/internal/httpserver"
	"github.com/lokiship/lokiship/internal/logsource"
	"github.com/lokiship/lokiship/internal/transport"
	"github.com/lokiship/lokiship/pkg/lokilog"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("lokiship: exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("lokiship", version)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("lokiship starting", "version", version, "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"endpoint", cfg.Loki.Endpoint,
		"format", cfg.Loki.Format,
		"batch_size", cfg.Loki.BatchSize,
		"filter", cfg.Filter.Level,
	)

	if cs := transport.CheckCert(context.Background(), cfg.Loki); cs != nil {
		switch cs.Status {
		case transport.CertValid:
			slog.Info("loki certificate ok", "issuer", cs.Issuer, "not_after", cs.NotAfter)
		default:
			slog.Warn("loki certificate problem",
				"status", cs.Status,
				"issuer", cs.Issuer,
				"not_after", cs.NotAfter,
			)
		}
	}

	handler, closer, err := build(cfg)
	if err != nil {
		return err
	}
	// Shutdown is idempotent, so the normal path, the signal path and the
	// panic hook below can all call it.
	defer closer.Shutdown()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("lokiship: panic, flushing pipeline", "panic", r)
			closer.Shutdown()
			panic(r)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// stdin reader: EOF ends the agent.
	g.Go(func() error {
		defer cancel()
		return logsource.Read(gctx, os.Stdin, logsource.Config{
			ModuleKey:   cfg.Input.ModuleKey,
			MaxLineSize: cfg.Input.MaxLineSize,
		}, func(l logsource.Line) {
			handler.LogEvent(l.Module, l.Event)
		})
	})

	// Hot reload only swaps the severity filter.
	g.Go(func() error {
		return config.Watch(gctx, *configPath, func(updated *config.Config) {
			f, err := updated.Filter.Build()
			if err != nil {
				slog.Error("filter reload failed", "err", err)
				return
			}
			handler.SetFilter(f)
			slog.Info("filter reloaded", "default", f.Default(), "modules", len(f.Modules()))
		})
	})

	if cfg.Metrics.Listen != "" {
		srv := httpserver.NewServer(cfg.Metrics.Listen, handler, nil)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()

	slog.Info("lokiship shutting down")
	closer.Shutdown()
	st := handler.Stats()
	slog.Info("pipeline stopped",
		"submitted", st.Submitted,
		"delivered", st.Delivered,
		"failed", st.Failed,
		"dropped", st.Dropped,
	)
	return err
}

// build wires the config into a running pipeline.
func build(cfg *config.Config) (*lokilog.Logger, *lokilog.Closer, error) {
	transport.UserAgent = "lokiship/" + version
	client, err := transport.NewClient(cfg.Loki)
	if err != nil {
		return nil, nil, err
	}
	f, err := cfg.Filter.Build()
	if err != nil {
		return nil, nil, err
	}

	b := lokilog.NewBuilder().
		Format(cfg.Loki.Format).
		Compression(cfg.Loki.Compression).
		TenantID(cfg.Loki.TenantID).
		BatchSize(cfg.Loki.BatchSize).
		HTTPClient(client).
		ModuleKey(cfg.Input.ModuleKey).
		Filter(f).
		Diagnostics(slog.Default().With("component", "pipeline"))
	for k, v := range cfg.Loki.Labels {
		b.Label(k, v)
	}
	if cfg.Loki.InstanceLabel {
		b.InstanceLabel()
	}
	return b.Build(cfg.Loki.Endpoint)
}
