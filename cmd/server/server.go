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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/infrastructure/crontab"
	"jan-server/services/plm-chat-api/internal/infrastructure/observability"
	"jan-server/services/plm-chat-api/internal/infrastructure/openbom"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver"
)

const (
	loginTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Application struct {
	httpServer    *httpserver.HTTPServer
	crontab       *crontab.Crontab
	authenticator *openbom.Authenticator
	config        *config.Config
	log           zerolog.Logger
}

// Start runs the chat API, the metrics listener and the background jobs
// until ctx is cancelled or one of them fails.
func (application *Application) Start(ctx context.Context) error {
	application.loginAtStartup(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return application.httpServer.Run(ctx)
	})
	eg.Go(func() error {
		return application.crontab.Run(ctx)
	})
	eg.Go(func() error {
		return application.runMetricsServer(ctx)
	})
	return eg.Wait()
}

// loginAtStartup signs in with the configured OpenBOM user when no access
// token was supplied. A failure is logged; /v1/auth/login can still be used.
func (application *Application) loginAtStartup(ctx context.Context) {
	cfg := application.config
	if cfg.OpenBOMAccessToken != "" || !cfg.HasOpenBOMLogin() {
		return
	}
	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	if err := application.authenticator.Login(loginCtx, cfg.OpenBOMUsername, cfg.OpenBOMPassword); err != nil {
		application.log.Error().Err(err).Msg("openbom login at startup failed")
		return
	}
	application.log.Info().Msg("logged in to openbom")
}

func (application *Application) runMetricsServer(ctx context.Context) error {
	if application.config.MetricsPort <= 0 || application.config.MetricsPort == application.config.HTTPPort {
		<-ctx.Done()
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", application.config.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	application.log.Info().Str("addr", server.Addr).Msg("metrics server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := CreateApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create application: %v\n", err)
		os.Exit(1)
	}
	log := application.log

	otelShutdown, err := observability.Setup(ctx, application.config, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	log.Info().Str("version", config.Version).Msg("starting plm-chat-api")
	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}
	log.Info().Msg("application exited cleanly")
}
