// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"github.com/tomtom215/civicguard/internal/api"
	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/cache"
	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/intake"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/supervisor"
	"github.com/tomtom215/civicguard/internal/supervisor/services"
	"github.com/tomtom215/civicguard/internal/web"
	ws "github.com/tomtom215/civicguard/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

type flags struct {
	configPath  string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("civicguard", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file (default: CONFIG_PATH or ./config.yaml)")
	fs.StringVar(&f.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	fs.BoolVar(&f.showVersion, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return f, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if f.showVersion {
		fmt.Println("civicguard", version)
		return
	}

	cfg, err := config.LoadWithKoanf(config.LoadOptions{ConfigPath: f.configPath, LogLevel: f.logLevel})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("backend", cfg.Backend.BaseURL).
		Str("environment", cfg.Server.Environment).
		Msg("Starting CivicGuard")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}

	client := backend.New(cfg.Backend)

	tiles := mapview.ChooseTiles(cfg.Map.MapboxToken)
	logging.Info().Str("provider", tiles.Provider).Msg("Map tiles selected")

	renderCache := cache.New("map-render", cfg.Map.RenderCacheTTL, cache.WithCapacity(512))
	renderer := mapview.NewStaticRenderer(tiles, mapview.WithImageCache(renderCache))
	offline := mapview.NewStaticRenderer(tiles, mapview.WithOffline())

	hub := ws.NewHub()

	pages, err := web.New(web.Deps{
		Tickets:  client,
		Intake:   client,
		Renderer: renderer,
		Fallback: offline,
		Config:   cfg,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load page templates")
	}

	handler := api.NewHandler(api.HandlerDeps{
		Upstream: client,
		Hub:      hub,
		Intake: ws.IntakeDeps{
			Settings: intake.SettingsFromConfig(cfg),
			Backend:  client,
			Tiles:    tiles,
			Clock:    clockwork.NewRealClock(),
		},
		Config:  cfg,
		Version: version,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)), pages)

	// Hijacked websocket connections outlive Shutdown; they watch connCtx.
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return connCtx },
	}
	server.RegisterOnShutdown(cancelConns)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewCacheJanitorService(renderCache, time.Minute))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewStatsPollerService(client, hub, cfg.Stats.PollInterval, nil))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Stopped")
}
