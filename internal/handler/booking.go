package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/domain"
)

// BookingHandler exposes the availability service over HTTP. It is the
// booking service the BFFs talk to and carries no authentication of its own.
type BookingHandler struct {
	svc *availability.Service
	log *zap.Logger
}

func NewBookingHandler(svc *availability.Service, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log}
}

type availabilityRequest struct {
	RoomIDs  []uuid.UUID `json:"room_ids" validate:"max=500"`
	CheckIn  domain.Date `json:"check_in"`
	CheckOut domain.Date `json:"check_out"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /booking. 409 when the room is taken.
func (h *BookingHandler) Create(c echo.Context) error {
	var b domain.Booking
	if err := c.Bind(&b); err != nil {
		return respondError(c, h.log, domain.ValidationError{Msg: "invalid body", Err: err})
	}
	created, err := h.svc.Reserve(c.Request().Context(), b)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Get handles GET /booking/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// List handles GET /bookings?user_id&room_id&status&check_in&check_out.
// room_id may repeat; check_in and check_out go together.
func (h *BookingHandler) List(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return c.JSON(http.StatusOK, out)
}

func bookingFilter(c echo.Context) (domain.BookingFilter, error) {
	var f domain.BookingFilter
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, domain.ValidationError{Field: "user_id", Msg: "invalid user_id", Err: err}
		}
		f.UserID = id
	}
	for _, raw := range c.QueryParams()["room_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, domain.ValidationError{Field: "room_id", Msg: "invalid room_id", Err: err}
		}
		f.RoomIDs = append(f.RoomIDs, id)
	}
	if raw := c.QueryParam("status"); raw != "" {
		s, err := domain.ParseBookingStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = s
	}
	if c.QueryParam("check_in") != "" || c.QueryParam("check_out") != "" {
		iv, err := intervalQuery(c)
		if err != nil {
			return f, err
		}
		f.Within = &iv
	}
	return f, nil
}

// UpdateStatus handles PATCH /booking/:id/status {status}.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	status, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.Transition(c.Request().Context(), id, status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles PATCH /booking/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// IsFree handles GET /availability/:room_id?check_in&check_out and answers
// with a bare JSON boolean.
func (h *BookingHandler) IsFree(c echo.Context) error {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	iv, err := intervalQuery(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	free, err := h.svc.IsFree(c.Request().Context(), roomID, iv.CheckIn, iv.CheckOut)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, free)
}

// AreFree handles POST /availability and answers {room_id: bool} for every
// requested room with one store query.
func (h *BookingHandler) AreFree(c echo.Context) error {
	var req availabilityRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	free, err := h.svc.AreFree(c.Request().Context(), req.RoomIDs, req.CheckIn, req.CheckOut)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make(map[string]bool, len(free))
	for id, ok := range free {
		out[id.String()] = ok
	}
	return c.JSON(http.StatusOK, out)
}
