package domain

import (
	"time"

	"github.com/google/uuid"
)

// The property, review and user records below are owned by external
// services; field names follow their JSON contracts.

type Amenity struct {
	Name string `json:"name"`
}

// Room is a bookable unit. MinPrice and MaxPrice are optional and bound the
// dynamic nightly rate.
type Room struct {
	ID          uuid.UUID  `json:"uuid"`
	PropertyID  uuid.UUID  `json:"property_uuid"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Capacity    int        `json:"capacity"`
	RoomType    string     `json:"room_type,omitempty"`
	BasePrice   Money      `json:"price_per_night"`
	MinPrice    *Money     `json:"min_price_per_night,omitempty"`
	MaxPrice    *Money     `json:"max_price_per_night,omitempty"`
	Currency    string     `json:"currency_code,omitempty"`
	Amenities   []Amenity  `json:"amenities,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CurrencyCode falls back to DefaultCurrency.
func (r Room) CurrencyCode() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

type Property struct {
	ID          uuid.UUID  `json:"uuid"`
	OwnerID     uuid.UUID  `json:"user_uuid"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Country     string     `json:"country"`
	State       string     `json:"state,omitempty"`
	City        string     `json:"city"`
	County      string     `json:"county,omitempty"`
	Address     string     `json:"address"`
	FullAddress string     `json:"full_address,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type Review struct {
	ID         uuid.UUID  `json:"uuid,omitempty"`
	PropertyID uuid.UUID  `json:"property_uuid"`
	UserID     uuid.UUID  `json:"user_uuid,omitempty"`
	Rating     int        `json:"rating" validate:"min=1,max=5"`
	Comment    string     `json:"comment,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// AverageRating returns nil for an empty list; zero reviews is not a zero rating.
func AverageRating(reviews []Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}

// User is the profile returned by the user service.
type User struct {
	ID       uuid.UUID `json:"uuid"`
	Email    string    `json:"email"`
	Name     string    `json:"name,omitempty"`
	LastName string    `json:"last_name,omitempty"`
	Role     string    `json:"role,omitempty"`
}

func (u User) FullName() string {
	switch {
	case u.Name != "" && u.LastName != "":
		return u.Name + " " + u.LastName
	case u.Name != "":
		return u.Name
	}
	return u.LastName
}
