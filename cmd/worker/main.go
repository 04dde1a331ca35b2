package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/commercegate/paypal-sessions/internal/bootstrap"
	infraRedis "github.com/commercegate/paypal-sessions/internal/infrastructure/redis"
	"github.com/commercegate/paypal-sessions/internal/repository/postgres"
	"github.com/commercegate/paypal-sessions/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "paypal-sessions-worker", "paypal_sessions_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	sessionRepo := postgres.NewSessionRepository(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	workerCfg := app.Config.Worker
	streamConsumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.WebhookStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)

	consumer := worker.NewWebhookConsumer(
		sessionRepo,
		app.Redis,
		streamConsumer,
		streamProducer,
		app.Metrics,
		app.Logger,
		workerCfg.LockTTL,
	)

	app.Logger.Info().
		Str("stream", infraRedis.WebhookStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for webhook actions...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
