package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// BookingRepo is the MySQL Interval Store. Bookings live in the bookings
// table; room_locks holds one row per room that has ever been booked and
// exists only so a reservation can take a row lock on its room before
// running the overlap test. All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can run their own transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, room_id, user_id, check_in, check_out, total_price, status, created_at, updated_at`

// activeOverlap is the overlap predicate shared by every availability query.
// Cancelled bookings never block a room.
const activeOverlap = `status <> 'cancelled' AND check_in < ? AND check_out > ?`

// Overlapping returns the rooms among roomIDs with at least one active
// booking overlapping iv, answered by a single SELECT.
func (r *BookingRepo) Overlapping(ctx context.Context, roomIDs []uuid.UUID, iv domain.Interval) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(roomIDs) == 0 {
		return out, nil
	}
	args := make([]interface{}, 0, len(roomIDs)+2)
	for _, id := range roomIDs {
		args = append(args, id.String())
	}
	args = append(args, iv.CheckOut, iv.CheckIn)
	q := `SELECT DISTINCT room_id FROM bookings WHERE room_id IN (` + placeholders(len(roomIDs)) + `) AND ` + activeOverlap
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// Insert writes b if its room is free for its interval. The room's lock row
// is upserted first; InnoDB holds that row lock until commit, so concurrent
// reservations for the same room run the overlap test one at a time.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.lockRoomTx(ctx, tx, b.RoomID); err != nil {
		return contention(err)
	}
	taken, err := r.countOverlapTx(ctx, tx, b.RoomID, b.Interval())
	if err != nil {
		return contention(err)
	}
	if taken > 0 {
		return domain.ConflictError{Resource: "room", Msg: "room is not available for the requested dates"}
	}
	if err := r.insertTx(ctx, tx, b); err != nil {
		if isDuplicateKey(err) {
			return domain.ConflictError{Resource: "booking", Msg: "booking id already exists", Err: err}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return contention(err)
	}
	committed = true
	return nil
}

// contention turns lock timeouts and deadlocks into a retryable conflict.
func contention(err error) error {
	if isLockContention(err) {
		return domain.ConflictError{Resource: "room", Msg: "concurrent reservation in progress, retry", Err: err}
	}
	return err
}

func (r *BookingRepo) lockRoomTx(ctx context.Context, tx *sql.Tx, roomID uuid.UUID) error {
	const q = `INSERT INTO room_locks (room_id) VALUES (?) ON DUPLICATE KEY UPDATE room_id = room_id`
	_, err := tx.ExecContext(ctx, q, roomID.String())
	return err
}

func (r *BookingRepo) countOverlapTx(ctx context.Context, tx *sql.Tx, roomID uuid.UUID, iv domain.Interval) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE room_id = ? AND ` + activeOverlap
	var n int
	err := tx.QueryRowContext(ctx, q, roomID.String(), iv.CheckOut, iv.CheckIn).Scan(&n)
	return n, err
}

func (r *BookingRepo) insertTx(ctx context.Context, tx *sql.Tx, b *domain.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		b.ID.String(), b.RoomID.String(), b.UserID.String(),
		b.CheckIn, b.CheckOut, b.TotalPrice, string(b.Status),
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// Get returns the booking with the given id.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id.String(), Err: err}
	}
	return b, err
}

// UpdateStatus is a compare-and-set on the status column. When no row
// changes the booking either does not exist or was moved by someone else
// first.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), time.Now().UTC(), id.String(), string(from))
	if err != nil {
		return domain.Booking{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return domain.Booking{}, err
		}
		return domain.Booking{}, domain.ConflictError{Resource: "booking", Msg: "status changed concurrently"}
	}
	return r.Get(ctx, id)
}

// List returns bookings matching f ordered by check-in.
func (r *BookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, len(f.RoomIDs)+4)
	if f.UserID != uuid.Nil {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID.String())
	}
	if len(f.RoomIDs) > 0 {
		where = append(where, "room_id IN ("+placeholders(len(f.RoomIDs))+")")
		for _, id := range f.RoomIDs {
			args = append(args, id.String())
		}
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Within != nil {
		where = append(where, "check_in < ? AND check_out > ?")
		args = append(args, f.Within.CheckOut, f.Within.CheckIn)
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY check_in, created_at`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s rowScanner) (domain.Booking, error) {
	var b domain.Booking
	var status string
	err := s.Scan(
		&b.ID, &b.RoomID, &b.UserID,
		&b.CheckIn, &b.CheckOut, &b.TotalPrice, &status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}
