package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/api"
	"github.com/speedwagon-io/xrgimon/internal/auth"
	"github.com/speedwagon-io/xrgimon/internal/collector"
	"github.com/speedwagon-io/xrgimon/internal/collector/adapters"
	"github.com/speedwagon-io/xrgimon/internal/config"
	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/eventlog"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/speedwagon-io/xrgimon/internal/window"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the event log and serve dashboards over HTTP and websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.MustLoad(*configPath))
		},
	}
}

func serve(cfg *config.Config) error {
	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting xrgimon",
		slog.String("env", cfg.Env),
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.String("event_log", cfg.EventLog.Source),
	)

	fleet := config.MustLoadFleet(cfg.Fleet.ConfigPath)

	log.Info("loaded fleet config",
		slog.Int("facilities", len(fleet.Facilities)),
		slog.Int("keys", len(fleet.Keys())),
	)

	loc, err := cfg.Window.Zone()
	if err != nil {
		return err
	}
	firstCall, err := cfg.Window.FirstCallAt()
	if err != nil {
		return err
	}

	norm := timestamp.New(loc)
	cards := display.NewNormalizer(norm)
	resolver := window.NewResolver(firstCall, loc)

	tokens := auth.NewStaticToken(cfg.Upstream.Token)
	if exp := tokens.Expiry(); !exp.IsZero() {
		log.Info("upstream token loaded", slog.Time("expires_at", exp))
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Upstream.RateLimit), cfg.Upstream.Burst)
	upstream := adapters.NewXRGIAPIAdapter(log, cfg.Upstream.BaseURL, cfg.Upstream.Timeout, tokens, limiter)

	var (
		source   collector.EventSource
		localLog *eventlog.SQLiteLog
	)
	switch cfg.EventLog.Source {
	case "sqlite", "mirror":
		localLog, err = eventlog.NewSQLiteLog(log, cfg.EventLog.Path, cfg.EventLog.MaxAge)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		source = localLog
		if cfg.EventLog.Source == "mirror" {
			source = collector.NewMirror(log, upstream, localLog)
		}
		log.Info("local event log opened", slog.String("path", cfg.EventLog.Path))
	default:
		source = upstream
	}

	manager := collector.NewManager(log, cfg, fleet, source, norm)

	hub := api.NewHub(log, fleet, upstream, resolver, cards)
	manager.OnRefresh(hub.NotifyRefresh)

	server := api.NewServer(log, cfg.Server.Address, api.Deps{
		Fleet:      fleet,
		Fetcher:    upstream,
		Reports:    upstream,
		Histories:  manager,
		Resolver:   resolver,
		Timestamps: norm,
		Cards:      cards,
		Hub:        hub,
	})

	server.AddChecker(api.NewFuncHealthChecker(upstream.Name(), upstream.Health))
	server.AddChecker(api.NewFuncHealthChecker("history", manager.Health))
	if localLog != nil {
		server.AddChecker(api.NewEventLogHealthChecker(localLog.Count))
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	manager.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	hub.Close()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop api server", sl.Err(err))
	}

	manager.Stop()

	log.Info("xrgimon stopped")
	return nil
}
