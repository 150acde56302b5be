package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// Schema objects the booking store cannot run without.
const (
	BookingsTable     = "bookings"
	RoomLocksTable    = "room_locks"
	RoomIntervalIndex = "idx_bookings_room_interval"
)

const createBookingsStmt = `CREATE TABLE IF NOT EXISTS bookings (
    id          CHAR(36)      NOT NULL,
    room_id     CHAR(36)      NOT NULL,
    user_id     CHAR(36)      NOT NULL,
    check_in    DATE          NOT NULL,
    check_out   DATE          NOT NULL,
    total_price DECIMAL(12,2) NOT NULL,
    status      ENUM('pending','confirmed','cancelled','completed') NOT NULL DEFAULT 'pending',
    created_at  DATETIME(6)   NOT NULL,
    updated_at  DATETIME(6)   NOT NULL,
    PRIMARY KEY (id),
    KEY idx_bookings_room_interval (room_id, check_in, check_out),
    KEY idx_bookings_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createRoomLocksStmt = `CREATE TABLE IF NOT EXISTS room_locks (
    room_id CHAR(36) NOT NULL,
    PRIMARY KEY (room_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema verifies the booking tables and the room/interval index
// exist. With migrate set, missing objects are created instead. A missing
// object without migrate is a domain.ConfigurationError.
func EnsureSchema(ctx context.Context, db *sql.DB, migrate bool) error {
	if migrate {
		for _, stmt := range []string{createBookingsStmt, createRoomLocksStmt} {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	for _, table := range []string{BookingsTable, RoomLocksTable} {
		ok, err := tableExists(ctx, db, table)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ConfigurationError{Key: "table " + table, Msg: "does not exist (set DB_AUTO_MIGRATE=true to create it)"}
		}
	}
	ok, err := indexExists(ctx, db, BookingsTable, RoomIntervalIndex)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ConfigurationError{Key: "index " + RoomIntervalIndex, Msg: "does not exist on " + BookingsTable}
	}
	return nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	const q = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	var n int
	if err := db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func indexExists(ctx context.Context, db *sql.DB, table, index string) (bool, error) {
	const q = `SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`
	var n int
	if err := db.QueryRowContext(ctx, q, table, index).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
