package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/commercegate/paypal-sessions/internal/bootstrap"
	"github.com/commercegate/paypal-sessions/internal/controller"
	infraRedis "github.com/commercegate/paypal-sessions/internal/infrastructure/redis"
	"github.com/commercegate/paypal-sessions/internal/provider/paypal"
	"github.com/commercegate/paypal-sessions/internal/repository/postgres"
	"github.com/commercegate/paypal-sessions/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "paypal-sessions-api", "paypal_sessions")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Provider ---
	providerCfg := paypal.Config{
		ClientID:           app.Config.PayPal.ClientID,
		ClientSecret:       app.Config.PayPal.ClientSecret,
		Sandbox:            app.Config.PayPal.Sandbox,
		Capture:            app.Config.PayPal.Capture,
		AuthWebhookID:      app.Config.PayPal.AuthWebhookID,
		AuthWebhookIDAlias: app.Config.PayPal.AuthWebhookIDAlias,
	}
	restClient := paypal.NewRESTClient(providerCfg, app.Logger)
	paypalProvider, err := paypal.New(providerCfg, restClient, app.Logger)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build PayPal provider")
	}

	// --- Repositories and services ---
	sessionRepo := postgres.NewSessionRepository(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	sessionService := service.NewSessionService(
		sessionRepo,
		paypalProvider,
		streamProducer,
		paypal.CustomIDFromEvent,
		app.Metrics,
		app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:           app.Pool,
		RedisClient:    app.Redis,
		SessionService: sessionService,
		Metrics:        app.Metrics,
		CORSConfig:     app.Config.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
