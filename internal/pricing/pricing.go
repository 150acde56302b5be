// Package pricing computes nightly rates and stay totals. Every function here
// is pure: the current date is an argument, never read from the clock, so a
// quote taken when a payment order is opened can be recomputed at capture
// and compared string for string.
package pricing

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

const (
	// FloorHorizonMonths is how far out a check-in must be before the
	// room's minimum price applies.
	FloorHorizonMonths = 6
	// CeilingWindowDays is the last-minute window in which the room's
	// maximum price applies.
	CeilingWindowDays = 10
)

// Tier names the branch of the rate function that produced a rate.
type Tier string

const (
	TierFloor   Tier = "floor"
	TierCeiling Tier = "ceiling"
	TierBase    Tier = "base"
)

// Clock supplies "today" to callers of the engine.
type Clock interface {
	Today() domain.Date
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Today() domain.Date { return domain.DateOf(time.Now()) }

// FixedClock always returns the same day.
type FixedClock domain.Date

func (c FixedClock) Today() domain.Date { return domain.Date(c) }

// NightlyRate returns the rate for a stay starting on checkIn as seen on
// today, rounded to cents.
func NightlyRate(room domain.Room, checkIn, today domain.Date) domain.Money {
	rate, _ := rateAndTier(room, checkIn, today)
	return rate
}

// RateFor is NightlyRate plus the tier that produced the rate.
func RateFor(room domain.Room, checkIn, today domain.Date) (domain.Money, Tier) {
	return rateAndTier(room, checkIn, today)
}

func rateAndTier(room domain.Room, checkIn, today domain.Date) (domain.Money, Tier) {
	if checkIn.After(today.AddDate(0, FloorHorizonMonths, 0)) && isSet(room.MinPrice) {
		return room.MinPrice.Round(), TierFloor
	}
	if today.DaysUntil(checkIn) <= CeilingWindowDays && isSet(room.MaxPrice) {
		return room.MaxPrice.Round(), TierCeiling
	}
	return room.BasePrice.Round(), TierBase
}

// isSet treats a missing or zero bound as "no bound".
func isSet(m *domain.Money) bool {
	return m != nil && m.IsPositive()
}

// Quote is the priced form of a stay.
type Quote struct {
	RoomID      string       `json:"room_id"`
	CheckIn     domain.Date  `json:"check_in"`
	CheckOut    domain.Date  `json:"check_out"`
	Nights      int          `json:"nights"`
	NightlyRate domain.Money `json:"nightly_rate"`
	Total       domain.Money `json:"total"`
	Currency    string       `json:"currency"`
	Tier        Tier         `json:"tier"`
}

// QuoteStay prices [checkIn, checkOut) for room. A stay of zero or fewer
// nights is a validation error; it is never clamped to one night.
func QuoteStay(room domain.Room, checkIn, checkOut, today domain.Date) (Quote, error) {
	iv, err := domain.NewInterval(checkIn, checkOut)
	if err != nil {
		return Quote{}, err
	}
	rate, tier := rateAndTier(room, checkIn, today)
	nights := iv.Nights()
	return Quote{
		RoomID:      room.ID.String(),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Nights:      nights,
		NightlyRate: rate,
		Total:       rate.Times(nights).Round(),
		Currency:    room.CurrencyCode(),
		Tier:        tier,
	}, nil
}

// Engine binds the pure functions to a clock.
type Engine struct {
	clock Clock
}

// NewEngine returns an Engine using clock, or the system clock when nil.
func NewEngine(clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{clock: clock}
}

func (e *Engine) Today() domain.Date { return e.clock.Today() }

func (e *Engine) NightlyRate(room domain.Room, checkIn domain.Date) domain.Money {
	return NightlyRate(room, checkIn, e.clock.Today())
}

func (e *Engine) Quote(room domain.Room, checkIn, checkOut domain.Date) (Quote, error) {
	return QuoteStay(room, checkIn, checkOut, e.clock.Today())
}
