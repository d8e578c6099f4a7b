package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"keuangan/internal/amqp"
	"keuangan/internal/cli"
	"keuangan/internal/log"
	"keuangan/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting keuangan-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	app, err := cli.Bootstrap(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to start message pipeline", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.Close()

	client, err := amqp.Dial(ctx, amqp.Config{
		URL:             cfg.AMQPURL,
		Exchange:        cfg.AMQPExchange,
		Queue:           cfg.AMQPQueue,
		ReplyRoutingKey: cfg.AMQPReplyRoutingKey,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		app.Close()
		os.Exit(1)
	}
	defer client.Close()

	chat := worker.NewChatWorker(app.Service, client, logger.WithComponent(log.ComponentWorker))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return chat.Run(gctx, client)
	})
	g.Go(func() error {
		// periodic ledger reachability check
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := app.Backend.Ready(gctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("Ledger backend not ready", log.FieldError, err.Error(),
						log.FieldBackend, app.Backend.Type.String())
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		client.Close()
		app.Close()
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
