package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lysyi3m/tracker-relay/app/api"
	"github.com/lysyi3m/tracker-relay/app/cfg"
	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/database"
	"github.com/lysyi3m/tracker-relay/app/notify"
	"github.com/lysyi3m/tracker-relay/app/tasks"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

const pebbleCacheBytes = 8 << 20

func main() {
	cfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Tracker Relay", "version", cfg.Version)

	shutdownTracing, err := setupTracing(cfg.TraceEndpoint, cfg.Version)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	trackerConfig, err := tracker.LoadConfig(cfg.TrackerFile)
	if err != nil {
		slog.Error("Failed to load tracker definition", "file", cfg.TrackerFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Tracker loaded", "tracker", trackerConfig.Name, "timezone", trackerConfig.Display.Timezone)

	db, err := database.NewConnection(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", cfg.DBPath, "migration_version", version, "dirty", dirty)

	store, err := openContentStore(cfg)
	if err != nil {
		slog.Error("Failed to open content store", "backend", cfg.ContentBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Content store ready", "backend", cfg.ContentBackend)

	httpClient := &http.Client{Timeout: trackerConfig.GetTimeout()}

	locations := database.NewLocationsTable(db)
	posts := database.NewBlogPostsTable(db)
	subscribers := database.NewSubscribersTable(db)
	status := tasks.NewStatus()

	services := &tasks.Services{
		Tracker:     trackerConfig,
		Client:      tracker.NewClient(httpClient, cfg.UserAgent, trackerConfig.GetTimeout(), cfg.GetFetchCacheTTL()),
		Registry:    database.NewSeenRegistry(db),
		Subscribers: subscribers,
		Store:       store,
		Publisher:   tasks.NewPublisher(store, cfg.GetWriteStagger()),
		Formatter:   notify.NewFormatter(trackerConfig.DisplayLocation(), trackerConfig.Display.ZoneLabel),
		SMSEnabled:  cfg.SMSEnabled,
		Sender:      newSender(cfg),
		PhonePrefix: cfg.SMSCountryPrefix,
		Status:      status,
	}

	slog.Info("Starting background scheduler", "workers", cfg.WorkerCount,
		"ingest_interval", cfg.GetIngestInterval(), "reconcile_interval", cfg.GetReconcileInterval())
	scheduler := tasks.NewScheduler(services)
	scheduler.Start()
	defer scheduler.Stop()

	selfLink := ""
	if cfg.BaseUrl != "" {
		selfLink = cfg.BaseUrl + "/feed.xml"
	}
	handler := api.NewHandler(trackerConfig,
		api.Repositories{Locations: locations, Posts: posts, Subscribers: subscribers},
		store, tracker.NewGenerator(selfLink, cfg.Version), scheduler, status, cfg.SMSCountryPrefix)
	server := api.NewServer(handler, cfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.Port, "api_enabled", cfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func openContentStore(cfg *cfg.Cfg) (content.Store, error) {
	switch cfg.ContentBackend {
	case "sanity":
		return content.NewSanityStore(&http.Client{Timeout: 30 * time.Second}, content.SanityConfig{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			Token:      cfg.SanityToken,
		})
	default:
		return content.OpenPebbleStore(cfg.ContentDir, pebbleCacheBytes)
	}
}

func newSender(cfg *cfg.Cfg) notify.Sender {
	if !cfg.SMSEnabled {
		slog.Info("SMS disabled, new posts will not be texted")
		return nil
	}
	return notify.NewTwilioSender(&http.Client{Timeout: 15 * time.Second}, notify.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioFrom,
	})
}

// setupTracing installs an OTLP/HTTP exporter when an endpoint is configured.
// The returned func flushes pending spans.
func setupTracing(endpoint, version string) (func(), error) {
	if endpoint == "" {
		return func() {}, nil
	}

	exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "tracker-relay"),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(provider)
	slog.Info("Tracing enabled", "endpoint", endpoint)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}, nil
}
