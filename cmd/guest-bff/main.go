// Command guest-bff is the public API for guests. It composes the property,
// booking, review and user services and runs the PayPal checkout.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/bff"
	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logging"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/payment"
	"github.com/iliyamo/hotel-booking/internal/pricing"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/router"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadGuestBFF()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	up := cfg.Upstreams
	props := client.NewPropertyClient(up.PropertyURL, up.Timeout, logger)
	bookings := client.NewBookingClient(up.BookingURL, up.Timeout, logger)
	reviews := client.NewReviewClient(up.ReviewURL, up.Timeout, logger)
	users := client.NewUserClient(up.UserURL, up.Timeout, logger)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		logger.Warn("redis unavailable; cache, rate limiting and token caching disabled")
	}

	engine := pricing.NewEngine(pricing.SystemClock{})

	var tokens payment.TokenCache
	if rdb != nil {
		tokens = payment.NewRedisTokenCache(rdb)
	}
	paypal := payment.NewPayPal(payment.Credentials{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		BaseURL:      cfg.PayPal.BaseURL,
	}, up.Timeout, tokens, logger)
	if !paypal.Configured() {
		logger.Warn("PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET not set; payment endpoints will answer 503")
	}

	orch := bff.New(bff.Deps{
		Properties:        props,
		Bookings:          bookings,
		Reviews:           reviews,
		Users:             users,
		Payments:          payment.NewAdapter(paypal, props, bookings, engine, cfg.Currency, logger),
		Events:            queue.NewPublisher(cfg.AMQPURL, cfg.EventExchange, logger),
		Pricing:           engine,
		Log:               logger,
		EnrichmentTimeout: cfg.EnrichmentTimeout,
		FanOut:            cfg.FanOut,
	})

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	e := router.NewServer(logger, cfg.RequestTimeout)
	router.RegisterRoutes(e)
	router.RegisterGuest(e, handler.NewGuestHandler(orch, logger), cfg.JWTSecret, cache, limit)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	if err := router.Shutdown(e, 10*time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
