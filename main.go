package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"dokianime/api"
	"dokianime/config"
	"dokianime/handlers"
	"dokianime/internal/logging"
	"dokianime/services/resolver"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFlag := flag.String("config", "", "path to the settings file (env DOKIANIME_CONFIG)")
	portOverride := flag.Int("port", 0, "override server port from config (env PORT)")
	staticOverride := flag.String("static", "", "override the directory holding the browser application")
	flag.Parse()

	fmt.Println("🚀 Dokianime gateway starting...")

	// Determine config path (flag, env or default)
	configPath := strings.TrimSpace(*configFlag)
	if configPath == "" {
		configPath = os.Getenv("DOKIANIME_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	if port, ok := envPort(); ok {
		settings.Server.Port = port
	}
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}
	if dir := strings.TrimSpace(*staticOverride); dir != "" {
		settings.Static.Directory = dir
	}

	logger, err := logging.NewFromConfig(settings.Log)
	if err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}
	slog.SetDefault(logger)
	if settings.Log.File != "" {
		logger.Info("logging to file", "file", settings.Log.File)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	adapter := resolver.NewProcessAdapter(resolver.ProcessOptions{
		Binary:            settings.Resolver.Binary,
		BaseArgs:          settings.Resolver.BaseArgs,
		WorkDir:           settings.Resolver.WorkDir,
		Env:               settings.Resolver.Env,
		Timeout:           settings.Resolver.Timeout(),
		DetachFromRequest: !settings.Resolver.CancelOnDisconnect,
		MaxOutputBytes:    settings.Resolver.MaxOutputBytes,
		Logger:            logger,
		Metrics:           resolver.NewMetrics(registry),
	})
	catalogHandler := handlers.NewCatalogHandler(resolver.NewService(adapter), logger)
	shellHandler := handlers.NewShellHandlerForDir(settings.Static.Directory, settings.Static.Index)

	opts := api.Options{Logger: logger}
	if settings.Metrics.Enabled {
		opts.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		opts.MetricsPath = settings.Metrics.Path
	}

	r := mux.NewRouter()
	api.Register(r, catalogHandler, shellHandler, opts)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Resolver calls may run for a long time; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("gateway listening",
		"addr", addr,
		"config", cfgManager.Path(),
		"resolver", settings.Resolver.Binary,
		"resolver_args", settings.Resolver.BaseArgs,
		"static", settings.Static.Directory,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, cleaning up")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func envPort() (int, bool) {
	raw := strings.TrimSpace(os.Getenv("PORT"))
	if raw == "" {
		return 0, false
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		log.Printf("ignoring invalid PORT %q", raw)
		return 0, false
	}
	return port, true
}
