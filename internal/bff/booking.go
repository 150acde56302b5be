package bff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/payment"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// BookingRequest is a guest's request to book a room without online payment.
type BookingRequest struct {
	RoomID   uuid.UUID   `json:"room_uuid" validate:"required"`
	CheckIn  domain.Date `json:"check_in"`
	CheckOut domain.Date `json:"check_out"`
	Guests   int         `json:"guests" validate:"omitempty,min=1"`
}

type BookingResult struct {
	Booking         domain.Booking   `json:"booking"`
	PartialFailures []PartialFailure `json:"partial_failures,omitempty"`
}

type CaptureResult struct {
	payment.Capture
	PartialFailures []PartialFailure `json:"partial_failures,omitempty"`
}

// CreateBooking prices the stay from the room and reserves it. Once the
// reservation exists the call succeeds; the confirmation event and the
// lookups feeding it are best-effort.
func (o *Orchestrator) CreateBooking(ctx context.Context, caller Caller, req BookingRequest) (BookingResult, error) {
	if caller.UserID == uuid.Nil {
		return BookingResult{}, domain.ValidationError{Field: "user_id", Msg: "caller has no user id"}
	}
	if req.RoomID == uuid.Nil {
		return BookingResult{}, domain.ValidationError{Field: "room_uuid", Msg: "room_uuid is required"}
	}
	if _, err := domain.NewInterval(req.CheckIn, req.CheckOut); err != nil {
		return BookingResult{}, err
	}
	if req.CheckIn.Before(o.pricing.Today()) {
		return BookingResult{}, domain.ValidationError{Field: "check_in", Msg: "check_in is in the past"}
	}

	room, err := o.properties.GetRoom(ctx, req.RoomID)
	if err != nil {
		return BookingResult{}, err
	}
	if req.Guests > 0 && room.Capacity > 0 && req.Guests > room.Capacity {
		return BookingResult{}, domain.ValidationError{
			Field: "guests",
			Msg:   fmt.Sprintf("room sleeps %d, requested %d guests", room.Capacity, req.Guests),
		}
	}
	q, err := o.pricing.Quote(room, req.CheckIn, req.CheckOut)
	if err != nil {
		return BookingResult{}, err
	}

	b, err := o.bookings.Reserve(ctx, domain.Booking{
		RoomID:     req.RoomID,
		UserID:     caller.UserID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		TotalPrice: q.Total,
		Status:     domain.StatusPending,
	})
	if err != nil {
		return BookingResult{}, err
	}
	o.log.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("room_id", b.RoomID.String()),
		zap.String("total", b.TotalPrice.String()))

	return BookingResult{Booking: b, PartialFailures: o.announceBooking(ctx, caller, b, room.PropertyID)}, nil
}

// CreatePaymentOrder opens a processor order for a stay.
func (o *Orchestrator) CreatePaymentOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	if o.payments == nil {
		return payment.Order{}, domain.ConfigurationError{Key: "PAYPAL_CLIENT_ID", Msg: "payments are not configured"}
	}
	return o.payments.CreateOrder(ctx, req)
}

// CapturePayment captures an approved order for the caller and announces
// the resulting booking.
func (o *Orchestrator) CapturePayment(ctx context.Context, caller Caller, req payment.CaptureRequest) (CaptureResult, error) {
	if o.payments == nil {
		return CaptureResult{}, domain.ConfigurationError{Key: "PAYPAL_CLIENT_ID", Msg: "payments are not configured"}
	}
	req.UserID = caller.UserID
	c, err := o.payments.CaptureOrder(ctx, req)
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{Capture: c, PartialFailures: o.announceBooking(ctx, caller, c.Booking, c.Room.PropertyID)}, nil
}

// announceBooking gathers contact details and emits BookingConfirmed.
func (o *Orchestrator) announceBooking(ctx context.Context, caller Caller, b domain.Booking, propertyID uuid.UUID) []PartialFailure {
	pf := newPartials(o.log)
	if propertyID == uuid.Nil {
		// room came back without its property; resolve it again
		ectx, cancel := o.enrichContext(ctx)
		room, err := o.properties.GetRoom(ectx, b.RoomID)
		cancel()
		if err != nil {
			pf.add("room", b.RoomID.String(), err)
		} else {
			propertyID = room.PropertyID
		}
	}
	c := o.lookupContacts(ctx, caller, propertyID, pf)
	o.emit(ctx, queue.DetailBookingConfirmed, queue.SourceBooking, queue.BookingConfirmed{
		BookingID:    b.ID,
		RoomID:       b.RoomID,
		GuestEmail:   c.callerEmail,
		PropertyName: c.propertyName,
		CheckIn:      b.CheckIn,
		CheckOut:     b.CheckOut,
		TotalPrice:   b.TotalPrice,
		HostEmail:    c.hostEmail,
	}, pf)
	return pf.result()
}

// ListMyBookings returns the caller's bookings, optionally by status.
func (o *Orchestrator) ListMyBookings(ctx context.Context, caller Caller, status string) ([]domain.Booking, error) {
	if caller.UserID == uuid.Nil {
		return nil, domain.ValidationError{Field: "user_id", Msg: "caller has no user id"}
	}
	f := domain.BookingFilter{UserID: caller.UserID}
	if status != "" {
		s, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = s
	}
	return o.bookings.List(ctx, f)
}

// CancelMyBooking cancels one of the caller's bookings. Bookings of other
// users are reported as not found.
func (o *Orchestrator) CancelMyBooking(ctx context.Context, caller Caller, id uuid.UUID) (domain.Booking, error) {
	b, err := o.bookings.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.UserID != caller.UserID {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id.String()}
	}
	return o.bookings.Cancel(ctx, id)
}
