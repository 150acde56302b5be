// Command booking-service owns the bookings table and answers availability
// questions for every other service.
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

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logging"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadBookingService()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store availability.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory booking store; data is lost on restart")
		store = availability.NewMemoryStore()
	default:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer db.Close()
		if err := repository.EnsureSchema(ctx, db, cfg.AutoMigrate); err != nil {
			logger.Fatal("schema check failed", zap.Error(err))
		}
		store = repository.NewBookingRepo(db)
	}

	e := router.NewServer(logger, cfg.RequestTimeout)
	router.RegisterRoutes(e)
	router.RegisterBookingService(e, handler.NewBookingHandler(availability.NewService(store, logger), logger))

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	if err := router.Shutdown(e, 10*time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
