package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// BookingClient is the BFF-side view of the booking service. It satisfies
// the same reserve/availability contract as availability.Service so the
// payment adapter can run against either.
type BookingClient struct {
	base *Base
}

func NewBookingClient(baseURL string, timeout time.Duration, log *zap.Logger) *BookingClient {
	return &BookingClient{base: NewBase("booking-service", baseURL, timeout, log)}
}

// AvailabilityRequest is the body of the batch availability call.
type AvailabilityRequest struct {
	RoomIDs  []uuid.UUID `json:"room_ids"`
	CheckIn  domain.Date `json:"check_in"`
	CheckOut domain.Date `json:"check_out"`
}

func (c *BookingClient) IsFree(ctx context.Context, roomID uuid.UUID, checkIn, checkOut domain.Date) (bool, error) {
	params := url.Values{}
	params.Set("check_in", checkIn.String())
	params.Set("check_out", checkOut.String())
	var free bool
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "availability/" + roomID.String(), Query: params}, &free)
	return free, err
}

// AreFree asks about every room in one request.
func (c *BookingClient) AreFree(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut domain.Date) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	var raw map[string]bool
	err := c.base.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "availability",
		JSON:   AvailabilityRequest{RoomIDs: roomIDs, CheckIn: checkIn, CheckOut: checkOut},
	}, &raw)
	if err != nil {
		return nil, err
	}
	for k, v := range raw {
		id, perr := uuid.Parse(k)
		if perr != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// Reserve creates a booking. A 409 from the booking service becomes a
// domain.ConflictError so callers can tell "room taken" from other failures.
func (c *BookingClient) Reserve(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	var out domain.Booking
	err := c.base.Do(ctx, Request{Method: http.MethodPost, Path: "booking", JSON: b}, &out)
	if err != nil {
		return domain.Booking{}, asConflict(err)
	}
	return out, nil
}

func (c *BookingClient) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var out domain.Booking
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "booking/" + id.String()}, &out)
	return out, err
}

func (c *BookingClient) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	params := url.Values{}
	if f.UserID != uuid.Nil {
		params.Set("user_id", f.UserID.String())
	}
	for _, id := range f.RoomIDs {
		params.Add("room_id", id.String())
	}
	if f.Status != "" {
		params.Set("status", string(f.Status))
	}
	if f.Within != nil {
		params.Set("check_in", f.Within.CheckIn.String())
		params.Set("check_out", f.Within.CheckOut.String())
	}
	var out []domain.Booking
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "bookings", Query: params}, &out)
	return out, err
}

func (c *BookingClient) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error) {
	var out domain.Booking
	err := c.base.Do(ctx, Request{
		Method: http.MethodPatch,
		Path:   "booking/" + id.String() + "/status",
		JSON:   map[string]string{"status": string(status)},
	}, &out)
	if err != nil {
		return domain.Booking{}, asConflict(err)
	}
	return out, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var out domain.Booking
	err := c.base.Do(ctx, Request{Method: http.MethodPatch, Path: "booking/" + id.String() + "/cancel"}, &out)
	if err != nil {
		return domain.Booking{}, asConflict(err)
	}
	return out, nil
}

func asConflict(err error) error {
	var up domain.UpstreamError
	if errors.As(err, &up) && up.Status == http.StatusConflict {
		return domain.ConflictError{Resource: "booking", Msg: up.Body}
	}
	return err
}
