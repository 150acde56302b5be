package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/bff"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/payment"
)

// HeaderIdempotencyKey lets a client retry order creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// GuestHandler is the HTTP face of the guest BFF.
type GuestHandler struct {
	orch *bff.Orchestrator
	log  *zap.Logger
}

func NewGuestHandler(orch *bff.Orchestrator, log *zap.Logger) *GuestHandler {
	if orch == nil {
		panic("nil orchestrator passed to NewGuestHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GuestHandler{orch: orch, log: log}
}

// caller builds the orchestrator caller from what JWTAuth stored.
func caller(c echo.Context) (bff.Caller, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return bff.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return bff.Caller{UserID: id, Authorization: middleware.Authorization(c)}, nil
}

// FilterRooms handles GET /rooms/filter.
func (h *GuestHandler) FilterRooms(c echo.Context) error {
	crit, err := criteria(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.orch.FilterRooms(c.Request().Context(), crit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// criteria reads the search from the query string. amenities may repeat or
// be comma separated.
func criteria(c echo.Context) (bff.Criteria, error) {
	var (
		crit bff.Criteria
		err  error
	)
	if crit.CheckIn, err = dateQuery(c, "check_in"); err != nil {
		return crit, err
	}
	if crit.CheckOut, err = dateQuery(c, "check_out"); err != nil {
		return crit, err
	}
	if raw := c.QueryParam("capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return crit, domain.ValidationError{Field: "capacity", Msg: "capacity must be an integer", Err: err}
		}
		crit.Capacity = &n
	}
	if raw := c.QueryParam("max_price_per_night"); raw != "" {
		m, err := domain.ParseMoney(raw)
		if err != nil {
			return crit, domain.ValidationError{Field: "max_price_per_night", Msg: "max_price_per_night must be a decimal", Err: err}
		}
		crit.MaxPrice = &m
	}
	for _, raw := range c.QueryParams()["amenities"] {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				crit.Amenities = append(crit.Amenities, a)
			}
		}
	}
	crit.Country = c.QueryParam("country")
	crit.State = c.QueryParam("state")
	crit.City = c.QueryParam("city")

	floats := []struct {
		name string
		dst  **float64
	}{
		{"latitude", &crit.Latitude},
		{"longitude", &crit.Longitude},
		{"radius_km", &crit.RadiusKm},
		{"rating_above", &crit.RatingAbove},
	}
	for _, f := range floats {
		raw := c.QueryParam(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return crit, domain.ValidationError{Field: f.name, Msg: f.name + " must be a number", Err: err}
		}
		*f.dst = &v
	}
	return crit, nil
}

// GetProperty handles GET /property/:uuid.
func (h *GuestHandler) GetProperty(c echo.Context) error {
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	p, err := h.orch.GetProperty(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetRoom handles GET /room/:uuid?check_in; the rate is for today when
// check_in is absent.
func (h *GuestHandler) GetRoom(c echo.Context) error {
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	in, err := dateQuery(c, "check_in")
	if err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.orch.GetRoom(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// PropertyReviews handles GET /reviews/:property_uuid.
func (h *GuestHandler) PropertyReviews(c echo.Context) error {
	id, err := uuidParam(c, "property_uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	reviews, err := h.orch.PropertyReviews(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

// AddReview handles POST /review/:property_uuid.
func (h *GuestHandler) AddReview(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "property_uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req bff.ReviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.orch.AddReview(c.Request().Context(), who, id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// CreateBooking handles POST /booking.
func (h *GuestHandler) CreateBooking(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req bff.BookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.orch.CreateBooking(c.Request().Context(), who, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// MyBookings handles GET /bookings/me?status.
func (h *GuestHandler) MyBookings(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.orch.ListMyBookings(c.Request().Context(), who, c.QueryParam("status"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return c.JSON(http.StatusOK, out)
}

// CancelBooking handles PATCH /booking/:uuid/cancel for the booking's guest.
func (h *GuestHandler) CancelBooking(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.orch.CancelMyBooking(c.Request().Context(), who, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Me handles GET /me by forwarding the caller's bearer to the user service.
func (h *GuestHandler) Me(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	u, err := h.orch.Me(c.Request().Context(), who)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// CreatePaymentOrder handles POST /payment/order. The Idempotency-Key
// header, when present, is passed to PayPal as the request id.
func (h *GuestHandler) CreatePaymentOrder(c echo.Context) error {
	if _, err := caller(c); err != nil {
		return respondError(c, h.log, err)
	}
	var req payment.OrderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	req.IdempotencyKey = strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	order, err := h.orch.CreatePaymentOrder(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// CapturePayment handles POST /payment/capture. The booking is created for
// the authenticated caller, whatever the body says.
func (h *GuestHandler) CapturePayment(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req payment.CaptureRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.orch.CapturePayment(c.Request().Context(), who, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
