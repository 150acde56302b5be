package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// MemoryStore is a Store held in process memory. One mutex serialises all
// writes, which makes Insert trivially atomic per room. It backs
// STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	byRoom   map[uuid.UUID][]uuid.UUID
	queries  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[uuid.UUID]domain.Booking),
		byRoom:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *MemoryStore) Overlapping(ctx context.Context, roomIDs []uuid.UUID, iv domain.Interval) (map[uuid.UUID]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	out := make(map[uuid.UUID]bool)
	for _, room := range roomIDs {
		if m.overlapsLocked(room, iv) {
			out[room] = true
		}
	}
	return out, nil
}

func (m *MemoryStore) overlapsLocked(room uuid.UUID, iv domain.Interval) bool {
	for _, id := range m.byRoom[room] {
		b := m.bookings[id]
		if b.Status.Active() && b.Interval().Overlaps(iv) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) Insert(ctx context.Context, b *domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.bookings[b.ID]; dup {
		return domain.ConflictError{Resource: "booking", Msg: "booking id already exists"}
	}
	if m.overlapsLocked(b.RoomID, b.Interval()) {
		return domain.ConflictError{Resource: "room", Msg: "room is not available for the requested dates"}
	}
	m.bookings[b.ID] = *b
	m.byRoom[b.RoomID] = append(m.byRoom[b.RoomID], b.ID)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id.String()}
	}
	return b, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id.String()}
	}
	if b.Status != from {
		return domain.Booking{}, domain.ConflictError{Resource: "booking", Msg: "status changed concurrently"}
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	m.bookings[id] = b
	return b, nil
}

func (m *MemoryStore) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make(map[uuid.UUID]bool, len(f.RoomIDs))
	for _, r := range f.RoomIDs {
		rooms[r] = true
	}
	out := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if f.UserID != uuid.Nil && b.UserID != f.UserID {
			continue
		}
		if len(rooms) > 0 && !rooms[b.RoomID] {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Within != nil && !b.Interval().Overlaps(*f.Within) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CheckIn.Before(out[j].CheckIn)
	})
	return out, nil
}

// Queries reports how many overlap queries have been served.
func (m *MemoryStore) Queries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries
}
