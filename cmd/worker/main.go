// Package main provides the entrypoint for the cargowatch background worker.
// The worker keeps watch assessments warm by periodically re-running them,
// and optionally consumes refresh jobs from a Pub/Sub subscription.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/config"
	"github.com/cargowatch/cargowatch/internal/database"
	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/telemetry"
	"github.com/cargowatch/cargowatch/internal/watch"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
	"github.com/cargowatch/cargowatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	serviceName := cfg.Service + "-worker"

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting cargowatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	registry := resilience.NewRegistry()
	gatewayHTTP := resilience.NewClient(resilience.ClientConfig{
		Name:       gateway.ProviderName,
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
	})
	registry.Register(gateway.ProviderName, gatewayHTTP)

	gatewayClient := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		HTTPClient: gatewayHTTP,
		Registry:   registry,
		Logger:     log,
	})

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: gatewayClient,
		Logger:   log,
		CacheTTL: cfg.Risk.WeatherCacheTTL,
	})

	hazardService := hazard.NewService(hazard.ServiceConfig{
		Provider: gatewayClient,
		Logger:   log,
	})

	engine := risk.NewEngine(risk.EngineConfig{
		Sampler:              route.NewSampler(route.SamplerConfig{MaxPoints: cfg.Risk.MaxSamplePoints}),
		Weather:              weatherService,
		Hazards:              hazardService,
		Fallback:             weather.NewSyntheticProvider(time.Now().UnixNano()),
		UseSyntheticFallback: cfg.Risk.UseSyntheticFallback,
		CacheTTL:             cfg.Risk.AssessmentCacheTTL,
		Logger:               log,
	})

	var repo watch.Repository
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = watch.NewPostgresRepository(pool)
	} else {
		log.Info().Msg("running with in-memory persistence")
		repo = watch.NewInMemoryRepository()
	}

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:     worker.DefaultRefreshConfig(),
		Logger:     log,
		Repository: repo,
		Engine:     engine,
	})

	// Health endpoint for the container platform.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Periodic refresh keeps cached assessments warm between job messages.
	go func() {
		ticker := time.NewTicker(cfg.Risk.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshJob.Run(ctx)
			}
		}
	}()

	if cfg.PubSub.Enabled {
		pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.SubscriptionID,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if closeErr := pubsubHandler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
