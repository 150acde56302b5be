// Command host-bff serves property owners: booking calendars and status
// changes for the properties they own.
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
	"github.com/iliyamo/hotel-booking/internal/router"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadHostBFF()

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

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		logger.Warn("redis unavailable; rate limiting disabled")
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	e := router.NewServer(logger, cfg.RequestTimeout)
	router.RegisterRoutes(e)
	router.RegisterHost(e, handler.NewHostHandler(bff.NewHost(props, bookings, logger), logger), cfg.JWTSecret, limit)

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
