// Package bff aggregates the collaborator services into the guest and host
// facing operations. Calls that decide what a guest can book and what it
// costs are required and fail the request; lookups that only decorate the
// answer (ratings, names, emails, events) are best-effort and reported as
// partial failures.
package bff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/payment"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

const (
	DefaultEnrichmentTimeout = 3 * time.Second
	DefaultFanOut            = 8
)

type PropertyService interface {
	GetProperty(ctx context.Context, id uuid.UUID) (domain.Property, error)
	GetRoom(ctx context.Context, id uuid.UUID) (domain.Room, error)
	PropertiesNear(ctx context.Context, q client.NearQuery) ([]domain.Property, error)
	PropertiesInCity(ctx context.Context, country, city, state string) ([]domain.Property, error)
	Rooms(ctx context.Context, q client.RoomQuery) ([]domain.Room, error)
}

type BookingService interface {
	AreFree(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut domain.Date) (map[uuid.UUID]bool, error)
	Reserve(ctx context.Context, b domain.Booking) (domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type ReviewService interface {
	ForProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Review, error)
	Add(ctx context.Context, r domain.Review) (uuid.UUID, error)
}

// UserService receives the caller's Authorization header unchanged.
type UserService interface {
	Me(ctx context.Context, authorization string) (domain.User, error)
	Get(ctx context.Context, id uuid.UUID, authorization string) (domain.User, error)
}

type Payments interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error)
	CaptureOrder(ctx context.Context, req payment.CaptureRequest) (payment.Capture, error)
}

// Emitter hands a domain event to the bus. It must not wait for consumers.
type Emitter interface {
	Emit(ctx context.Context, detailType, source string, detail interface{}) error
}

// Caller is the authenticated user an operation runs for.
type Caller struct {
	UserID        uuid.UUID
	Authorization string
}

// Deps are the collaborators of an Orchestrator. Payments and Events may be
// nil: payment operations then fail with a ConfigurationError and events are
// not published.
type Deps struct {
	Properties PropertyService
	Bookings   BookingService
	Reviews    ReviewService
	Users      UserService
	Payments   Payments
	Events     Emitter
	Pricing    *pricing.Engine
	Log        *zap.Logger

	// EnrichmentTimeout bounds every best-effort lookup.
	EnrichmentTimeout time.Duration
	// FanOut caps concurrent calls per fan-out.
	FanOut int
}

// Orchestrator serves the guest BFF.
type Orchestrator struct {
	properties PropertyService
	bookings   BookingService
	reviews    ReviewService
	users      UserService
	payments   Payments
	events     Emitter
	pricing    *pricing.Engine
	log        *zap.Logger

	enrichmentTimeout time.Duration
	fanOut            int
}

func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		properties:        d.Properties,
		bookings:          d.Bookings,
		reviews:           d.Reviews,
		users:             d.Users,
		payments:          d.Payments,
		events:            d.Events,
		pricing:           d.Pricing,
		log:               d.Log,
		enrichmentTimeout: d.EnrichmentTimeout,
		fanOut:            d.FanOut,
	}
	if o.pricing == nil {
		o.pricing = pricing.NewEngine(nil)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.enrichmentTimeout <= 0 {
		o.enrichmentTimeout = DefaultEnrichmentTimeout
	}
	if o.fanOut <= 0 {
		o.fanOut = DefaultFanOut
	}
	return o
}

// Me returns the caller's profile from the user service.
func (o *Orchestrator) Me(ctx context.Context, caller Caller) (domain.User, error) {
	return o.users.Me(ctx, caller.Authorization)
}
