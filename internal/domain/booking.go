package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// transitions lists the allowed next states; cancelled and completed are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseBookingStatus normalises and validates a status string.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("unknown booking status %q", s)}
}

// Active reports whether the booking still occupies its room.
func (s BookingStatus) Active() bool { return s != StatusCancelled }

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool { return len(transitions[s]) == 0 }

// CanTransitionTo reports whether s → next is allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is one reservation of one room for a half-open stay.
type Booking struct {
	ID         uuid.UUID     `json:"id"`
	RoomID     uuid.UUID     `json:"room_id"`
	UserID     uuid.UUID     `json:"user_id"`
	CheckIn    Date          `json:"check_in"`
	CheckOut   Date          `json:"check_out"`
	TotalPrice Money         `json:"total_price"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Interval returns the stay.
func (b Booking) Interval() Interval {
	return Interval{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// Validate checks a booking before it is reserved.
func (b Booking) Validate() error {
	if b.RoomID == uuid.Nil {
		return ValidationError{Field: "room_id", Msg: "room_id is required"}
	}
	if b.UserID == uuid.Nil {
		return ValidationError{Field: "user_id", Msg: "user_id is required"}
	}
	if err := b.Interval().Validate(); err != nil {
		return err
	}
	if !b.TotalPrice.IsPositive() {
		return ValidationError{Field: "total_price", Msg: "total_price must be positive"}
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ValidationError{Field: "status", Msg: "new bookings must be pending or confirmed"}
	}
	return nil
}

// BookingFilter narrows a booking listing. Zero fields are ignored; the
// interval filter uses the same overlap test as the availability check.
type BookingFilter struct {
	UserID  uuid.UUID
	RoomIDs []uuid.UUID
	Status  BookingStatus
	Within  *Interval
}
