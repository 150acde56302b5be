package bff

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
)

// Host serves the host BFF. Every operation is scoped to properties the
// caller owns; anything else is reported as not found.
type Host struct {
	properties PropertyService
	bookings   BookingService
	log        *zap.Logger
}

func NewHost(properties PropertyService, bookings BookingService, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{properties: properties, bookings: bookings, log: log}
}

// RoomCalendar is one room of a property with its bookings in a window.
type RoomCalendar struct {
	domain.Room
	Property domain.Property  `json:"property"`
	Bookings []domain.Booking `json:"bookings"`
}

// PropertyBookings lists, per room, the bookings overlapping [checkIn,
// checkOut). All rooms are covered by a single bookings query.
func (h *Host) PropertyBookings(ctx context.Context, caller Caller, propertyID uuid.UUID, checkIn, checkOut domain.Date) ([]RoomCalendar, error) {
	iv, err := domain.NewInterval(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	prop, err := h.ownedProperty(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	rooms, err := h.properties.Rooms(ctx, client.RoomQuery{PropertyID: propertyID})
	if err != nil {
		return nil, err
	}
	out := make([]RoomCalendar, 0, len(rooms))
	if len(rooms) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	bookings, err := h.bookings.List(ctx, domain.BookingFilter{RoomIDs: ids, Within: &iv})
	if err != nil {
		return nil, err
	}
	byRoom := make(map[uuid.UUID][]domain.Booking, len(rooms))
	for _, b := range bookings {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}
	for _, r := range rooms {
		list := byRoom[r.ID]
		if list == nil {
			list = []domain.Booking{}
		}
		out = append(out, RoomCalendar{Room: r, Property: prop, Bookings: list})
	}
	return out, nil
}

// ChangeBookingStatus moves a booking on one of the caller's properties to
// status. Disallowed transitions come back as conflicts.
func (h *Host) ChangeBookingStatus(ctx context.Context, caller Caller, id uuid.UUID, status string) (domain.Booking, error) {
	to, err := domain.ParseBookingStatus(status)
	if err != nil {
		return domain.Booking{}, err
	}
	b, err := h.ownedBooking(ctx, caller, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.Status.CanTransitionTo(to) {
		return domain.Booking{}, domain.ConflictError{
			Resource: "booking",
			Msg:      "cannot move booking from " + string(b.Status) + " to " + string(to),
		}
	}
	updated, err := h.bookings.UpdateStatus(ctx, id, to)
	if err != nil {
		return domain.Booking{}, err
	}
	h.log.Info("booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("from", string(b.Status)),
		zap.String("to", string(updated.Status)))
	return updated, nil
}

func (h *Host) CancelBooking(ctx context.Context, caller Caller, id uuid.UUID) (domain.Booking, error) {
	if _, err := h.ownedBooking(ctx, caller, id); err != nil {
		return domain.Booking{}, err
	}
	return h.bookings.Cancel(ctx, id)
}

func (h *Host) ownedProperty(ctx context.Context, caller Caller, propertyID uuid.UUID) (domain.Property, error) {
	prop, err := h.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if prop.OwnerID != caller.UserID {
		return domain.Property{}, domain.NotFoundError{Resource: "property", ID: propertyID.String()}
	}
	return prop, nil
}

func (h *Host) ownedBooking(ctx context.Context, caller Caller, id uuid.UUID) (domain.Booking, error) {
	b, err := h.bookings.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	room, err := h.properties.GetRoom(ctx, b.RoomID)
	if err != nil {
		return domain.Booking{}, err
	}
	if _, err := h.ownedProperty(ctx, caller, room.PropertyID); err != nil {
		if domain.IsNotFound(err) {
			return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id.String()}
		}
		return domain.Booking{}, err
	}
	return b, nil
}
