// Package queue defines the domain events exchanged over the message broker
// and the publisher and consumer that move them.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

const (
	DetailBookingConfirmed = "BookingConfirmed"
	DetailReviewCreated    = "ReviewCreated"

	SourceBooking = "booking-service"
	SourceReview  = "review-service"
)

// Envelope wraps every event on the bus.
type Envelope struct {
	ID         string          `json:"id"`
	DetailType string          `json:"detail_type"`
	Source     string          `json:"source"`
	Time       time.Time       `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

// NewEnvelope marshals detail and stamps the envelope with a fresh id.
func NewEnvelope(detailType, source string, detail interface{}) (Envelope, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s detail: %w", detailType, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		DetailType: detailType,
		Source:     source,
		Time:       time.Now().UTC(),
		Detail:     raw,
	}, nil
}

// RoutingKey turns a detail type into a dotted lower-case key:
// BookingConfirmed becomes booking.confirmed.
func RoutingKey(detailType string) string {
	var b strings.Builder
	for i, r := range detailType {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('.')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BookingConfirmed is published once a booking has been reserved. The
// optional fields come from best-effort lookups and may be null.
type BookingConfirmed struct {
	BookingID    uuid.UUID    `json:"booking_id"`
	RoomID       uuid.UUID    `json:"room_id"`
	GuestEmail   *string      `json:"guest_email"`
	PropertyName *string      `json:"property_name"`
	CheckIn      domain.Date  `json:"check_in"`
	CheckOut     domain.Date  `json:"check_out"`
	TotalPrice   domain.Money `json:"total_price"`
	HostEmail    *string      `json:"host_email"`
}

// ReviewCreated is published after a guest reviews a property.
type ReviewCreated struct {
	ReviewID     uuid.UUID `json:"review_id"`
	PropertyID   uuid.UUID `json:"property_id"`
	Rating       int       `json:"rating"`
	ReviewerName *string   `json:"reviewer_name"`
	HostEmail    *string   `json:"host_email"`
}
