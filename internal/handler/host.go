package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/bff"
)

// HostHandler is the HTTP face of the host BFF. Every route acts only on
// properties the caller owns.
type HostHandler struct {
	host *bff.Host
	log  *zap.Logger
}

func NewHostHandler(host *bff.Host, log *zap.Logger) *HostHandler {
	if host == nil {
		panic("nil host passed to NewHostHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HostHandler{host: host, log: log}
}

// PropertyBookings handles GET /property/:uuid/bookings?check_in&check_out.
func (h *HostHandler) PropertyBookings(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	iv, err := intervalQuery(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	cal, err := h.host.PropertyBookings(c.Request().Context(), who, id, iv.CheckIn, iv.CheckOut)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if cal == nil {
		cal = []bff.RoomCalendar{}
	}
	return c.JSON(http.StatusOK, cal)
}

// ChangeBookingStatus handles PATCH /booking/:uuid/status {status}.
func (h *HostHandler) ChangeBookingStatus(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.host.ChangeBookingStatus(c.Request().Context(), who, id, req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CancelBooking handles PATCH /booking/:uuid/cancel.
func (h *HostHandler) CancelBooking(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := uuidParam(c, "uuid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.host.CancelBooking(c.Request().Context(), who, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}
