package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/api/handlers"
	"github.com/AmmarJamshed/FDA-checker/internal/api/routes"
	"github.com/AmmarJamshed/FDA-checker/internal/bootstrap"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
	"github.com/AmmarJamshed/FDA-checker/pkg/secrets"
)

func main() {
	// Credentials from Vault land in the environment before config is read
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv("")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load Vault secrets: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// The service must not accept requests without a loaded model.
	svc, eventBus, closeDeps, err := bootstrap.BuildServer(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load compliance model")
	}
	defer closeDeps()

	complianceHandler := handlers.NewComplianceHandler(svc, svc.Model())
	router := routes.NewRouter(complianceHandler, cfg.Server.AllowedOrigins, metrics)
	if eventBus != nil {
		router.WithEventStream(handlers.NewSSEHandler(eventBus, 0))
		log.Info().Msg("evaluation event stream enabled")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if eventBus != nil {
		// Ends open event streams so Shutdown is not held up by them.
		server.RegisterOnShutdown(func() { _ = eventBus.Close() })
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("model_version", svc.Model().Info().Version).
			Msg("starting compliance API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
