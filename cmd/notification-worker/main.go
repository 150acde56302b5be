// Command notification-worker consumes booking and review events and writes
// the resulting emails to the notification sink.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/logging"
	"github.com/iliyamo/hotel-booking/internal/notification"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadWorker()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notification.NewNotifier(notification.NewFileSink(cfg.OutputPath), logger)
	consumer := queue.Consumer{
		URL:      cfg.AMQPURL,
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
		Keys: []string{
			queue.RoutingKey(queue.DetailBookingConfirmed),
			queue.RoutingKey(queue.DetailReviewCreated),
		},
		Prefetch: cfg.Prefetch,
		Handle:   notifier.Handle,
		Log:      logger,
	}

	logger.Info("consuming", zap.String("queue", cfg.Queue), zap.String("exchange", cfg.Exchange), zap.String("sink", cfg.OutputPath))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
