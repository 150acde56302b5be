package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// NewServer returns an echo instance with the validator, panic recovery,
// request ids, the zap request logger and a per-request timeout installed.
func NewServer(log *zap.Logger, requestTimeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	if requestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: requestTimeout}))
	}
	return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBookingService mounts the booking service API under /v1. It is an
// internal service reached only by the BFFs.
func RegisterBookingService(e *echo.Echo, h *handler.BookingHandler) {
	g := e.Group("/v1")
	g.POST("/booking", h.Create)
	g.GET("/booking/:id", h.Get)
	g.GET("/bookings", h.List)
	g.PATCH("/booking/:id/status", h.UpdateStatus)
	g.PATCH("/booking/:id/cancel", h.Cancel)
	g.GET("/availability/:room_id", h.IsFree)
	g.POST("/availability", h.AreFree)
}

// RegisterGuest mounts the guest BFF. Browse routes are public and go
// through cache; everything else needs a GUEST token. limit applies to both.
// Nil middlewares are skipped.
func RegisterGuest(e *echo.Echo, h *handler.GuestHandler, jwtSecret string, cache, limit echo.MiddlewareFunc) {
	public := e.Group("/v1", compact(limit, cache)...)
	public.GET("/rooms/filter", h.FilterRooms)
	public.GET("/property/:uuid", h.GetProperty)
	public.GET("/room/:uuid", h.GetRoom)
	public.GET("/reviews/:property_uuid", h.PropertyReviews)

	g := e.Group("/v1", compact(
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleGuest),
		limit,
	)...)
	g.GET("/me", h.Me)
	g.POST("/review/:property_uuid", h.AddReview)
	g.POST("/booking", h.CreateBooking)
	g.GET("/bookings/me", h.MyBookings)
	g.PATCH("/booking/:uuid/cancel", h.CancelBooking)
	g.POST("/payment/order", h.CreatePaymentOrder)
	g.POST("/payment/capture", h.CapturePayment)
}

// RegisterHost mounts the host BFF; every route needs a HOST token.
func RegisterHost(e *echo.Echo, h *handler.HostHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", compact(
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleHost),
		limit,
	)...)
	g.GET("/property/:uuid/bookings", h.PropertyBookings)
	g.PATCH("/booking/:uuid/status", h.ChangeBookingStatus)
	g.PATCH("/booking/:uuid/cancel", h.CancelBooking)
}

func compact(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mws[:0]
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Shutdown drains e within grace.
func Shutdown(e *echo.Echo, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
