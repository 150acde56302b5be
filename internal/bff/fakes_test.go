package bff

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

type fakeProperties struct {
	mu         sync.Mutex
	properties map[uuid.UUID]domain.Property
	rooms      map[uuid.UUID][]domain.Room
	roomErr    map[uuid.UUID]error
	calls      int
}

func newFakeProperties() *fakeProperties {
	return &fakeProperties{
		properties: map[uuid.UUID]domain.Property{},
		rooms:      map[uuid.UUID][]domain.Room{},
		roomErr:    map[uuid.UUID]error{},
	}
}

func (f *fakeProperties) add(p domain.Property, rooms ...domain.Room) {
	for i := range rooms {
		rooms[i].PropertyID = p.ID
	}
	f.properties[p.ID] = p
	f.rooms[p.ID] = rooms
}

func (f *fakeProperties) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeProperties) GetProperty(_ context.Context, id uuid.UUID) (domain.Property, error) {
	f.count()
	p, ok := f.properties[id]
	if !ok {
		return domain.Property{}, domain.UpstreamError{Service: "property-service", Status: http.StatusNotFound}
	}
	return p, nil
}

func (f *fakeProperties) GetRoom(_ context.Context, id uuid.UUID) (domain.Room, error) {
	f.count()
	for _, rooms := range f.rooms {
		for _, r := range rooms {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return domain.Room{}, domain.UpstreamError{Service: "property-service", Status: http.StatusNotFound}
}

func (f *fakeProperties) all() []domain.Property {
	out := make([]domain.Property, 0, len(f.properties))
	for _, p := range f.properties {
		out = append(out, p)
	}
	return out
}

func (f *fakeProperties) PropertiesNear(context.Context, client.NearQuery) ([]domain.Property, error) {
	f.count()
	return f.all(), nil
}

func (f *fakeProperties) PropertiesInCity(_ context.Context, country, city, _ string) ([]domain.Property, error) {
	f.count()
	var out []domain.Property
	for _, p := range f.properties {
		if p.Country == country && p.City == city {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProperties) Rooms(_ context.Context, q client.RoomQuery) ([]domain.Room, error) {
	f.count()
	if err := f.roomErr[q.PropertyID]; err != nil {
		return nil, err
	}
	var out []domain.Room
	for _, r := range f.rooms[q.PropertyID] {
		if q.Capacity != nil && r.Capacity < *q.Capacity {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// localBookings runs the real availability service in process and records
// the batch availability calls made against it.
type localBookings struct {
	*availability.Service
	mu      sync.Mutex
	batches [][]uuid.UUID
	lists   int
}

func newLocalBookings() *localBookings {
	return &localBookings{Service: availability.NewService(availability.NewMemoryStore(), nil)}
}

func (b *localBookings) AreFree(ctx context.Context, ids []uuid.UUID, in, out domain.Date) (map[uuid.UUID]bool, error) {
	b.mu.Lock()
	b.batches = append(b.batches, append([]uuid.UUID(nil), ids...))
	b.mu.Unlock()
	return b.Service.AreFree(ctx, ids, in, out)
}

func (b *localBookings) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	b.mu.Lock()
	b.lists++
	b.mu.Unlock()
	return b.Service.List(ctx, f)
}

func (b *localBookings) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error) {
	return b.Transition(ctx, id, status)
}

type fakeReviews struct {
	byProperty map[uuid.UUID][]domain.Review
	fail       map[uuid.UUID]error
	delay      map[uuid.UUID]time.Duration
	added      []domain.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{
		byProperty: map[uuid.UUID][]domain.Review{},
		fail:       map[uuid.UUID]error{},
		delay:      map[uuid.UUID]time.Duration{},
	}
}

func (f *fakeReviews) ForProperty(ctx context.Context, id uuid.UUID) ([]domain.Review, error) {
	if d := f.delay[id]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, domain.UpstreamError{Service: "review-service", Err: ctx.Err()}
		case <-time.After(d):
		}
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return f.byProperty[id], nil
}

func (f *fakeReviews) Add(_ context.Context, r domain.Review) (uuid.UUID, error) {
	f.added = append(f.added, r)
	return uuid.New(), nil
}

type fakeUsers struct {
	users map[uuid.UUID]domain.User
	me    *domain.User
	err   error
	auth  []string
	mu    sync.Mutex
}

func (f *fakeUsers) Me(_ context.Context, authorization string) (domain.User, error) {
	f.mu.Lock()
	f.auth = append(f.auth, authorization)
	f.mu.Unlock()
	if f.err != nil {
		return domain.User{}, f.err
	}
	if f.me == nil {
		return domain.User{}, domain.UpstreamError{Service: "user-service", Status: http.StatusUnauthorized}
	}
	return *f.me, nil
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID, _ string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.UpstreamError{Service: "user-service", Status: http.StatusNotFound}
	}
	return u, nil
}

type emitted struct {
	detailType string
	source     string
	detail     interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, detailType, source string, detail interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, emitted{detailType, source, detail})
	return nil
}

type world struct {
	props    *fakeProperties
	bookings *localBookings
	reviews  *fakeReviews
	users    *fakeUsers
	events   *recordingEmitter
	orch     *Orchestrator
	host     *Host
}

// today for every test in this package.
var today = domain.MustDate("2025-01-01")

func newWorld() *world {
	w := &world{
		props:    newFakeProperties(),
		bookings: newLocalBookings(),
		reviews:  newFakeReviews(),
		users:    &fakeUsers{users: map[uuid.UUID]domain.User{}},
		events:   &recordingEmitter{},
	}
	w.orch = New(Deps{
		Properties:        w.props,
		Bookings:          w.bookings,
		Reviews:           w.reviews,
		Users:             w.users,
		Events:            w.events,
		Pricing:           pricing.NewEngine(pricing.FixedClock(today)),
		EnrichmentTimeout: 200 * time.Millisecond,
	})
	w.host = NewHost(w.props, w.bookings, nil)
	return w
}

func money(s string) *domain.Money {
	m := domain.MustMoney(s)
	return &m
}

func room(name string, capacity int) domain.Room {
	return domain.Room{
		ID:        uuid.New(),
		Name:      name,
		Capacity:  capacity,
		BasePrice: domain.MustMoney("100"),
		MinPrice:  money("70"),
		MaxPrice:  money("150"),
	}
}

func property(name string, owner uuid.UUID) domain.Property {
	return domain.Property{ID: uuid.New(), OwnerID: owner, Name: name, Country: "NL", City: "Amsterdam"}
}
