// Package availability guards the per-room non-overlap invariant. It answers
// single and batch availability questions and is the only path through which
// bookings are written or change status.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// Store is the Interval Store. Implementations must make Insert atomic per
// room: the overlap test and the write happen under the same lock or
// transaction, and a detected overlap is reported as a domain.ConflictError.
type Store interface {
	// Overlapping returns the subset of roomIDs that have an active booking
	// overlapping iv. It is answered with a single query.
	Overlapping(ctx context.Context, roomIDs []uuid.UUID, iv domain.Interval) (map[uuid.UUID]bool, error)
	Insert(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	// UpdateStatus moves a booking from one status to another only if it is
	// still in from; otherwise it reports a conflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
}

// Service wraps a Store with validation and the booking status machine.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService returns a Service over store. A nil logger is replaced by a no-op.
func NewService(store Store, log *zap.Logger) *Service {
	if store == nil {
		panic("nil store passed to availability.NewService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// IsFree reports whether no active booking on roomID overlaps [checkIn, checkOut).
func (s *Service) IsFree(ctx context.Context, roomID uuid.UUID, checkIn, checkOut domain.Date) (bool, error) {
	free, err := s.AreFree(ctx, []uuid.UUID{roomID}, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return free[roomID], nil
}

// AreFree is the batch form of IsFree. It issues exactly one store query for
// any number of rooms; duplicate ids are collapsed.
func (s *Service) AreFree(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut domain.Date) (map[uuid.UUID]bool, error) {
	iv, err := domain.NewInterval(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	ids := dedupe(roomIDs)
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	taken, err := s.store.Overlapping(ctx, ids, iv)
	if err != nil {
		return nil, fmt.Errorf("availability: overlap query: %w", err)
	}
	for _, id := range ids {
		out[id] = !taken[id]
	}
	return out, nil
}

// Reserve validates b and writes it if its room is free for its interval.
// The id and timestamps are assigned here; a zero status becomes pending.
func (s *Service) Reserve(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.Status == "" {
		b.Status = domain.StatusPending
	}
	if err := b.Validate(); err != nil {
		return domain.Booking{}, err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	b.TotalPrice = b.TotalPrice.Round()

	if err := s.store.Insert(ctx, &b); err != nil {
		if domain.IsConflict(err) {
			s.log.Info("reservation rejected",
				zap.String("room_id", b.RoomID.String()),
				zap.String("check_in", b.CheckIn.String()),
				zap.String("check_out", b.CheckOut.String()))
		}
		return domain.Booking{}, err
	}
	s.log.Info("booking reserved",
		zap.String("booking_id", b.ID.String()),
		zap.String("room_id", b.RoomID.String()),
		zap.String("status", string(b.Status)))
	return b, nil
}

// Get loads a single booking.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.store.Get(ctx, id)
}

// List returns bookings matching f.
func (s *Service) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	if f.Within != nil {
		if err := f.Within.Validate(); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, f)
}

// Transition moves a booking to status to, enforcing the status machine.
// A cancelled booking stops occupying its room as soon as this returns.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to domain.BookingStatus) (domain.Booking, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !current.Status.CanTransitionTo(to) {
		return domain.Booking{}, domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("cannot move from %s to %s", current.Status, to),
		}
	}
	updated, err := s.store.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return domain.Booking{}, err
	}
	s.log.Info("booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.Transition(ctx, id, domain.StatusCancelled)
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.Transition(ctx, id, domain.StatusConfirmed)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.Transition(ctx, id, domain.StatusCompleted)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
