package bff

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

func TestPropertyBookingsUsesOneQuery(t *testing.T) {
	w := newWorld()
	owner := Caller{UserID: uuid.New()}
	p := property("P", owner.UserID)
	r1, r2 := room("r1", 2), room("r2", 2)
	w.props.add(p, r1, r2)
	ctx := context.Background()

	seed := []struct {
		room    uuid.UUID
		in, out string
	}{
		{r1.ID, "2025-02-01", "2025-02-03"},
		{r1.ID, "2025-02-10", "2025-02-12"},
		{r2.ID, "2025-03-01", "2025-03-02"},
	}
	for _, s := range seed {
		_, err := w.bookings.Reserve(ctx, domain.Booking{
			RoomID: s.room, UserID: uuid.New(),
			CheckIn: domain.MustDate(s.in), CheckOut: domain.MustDate(s.out),
			TotalPrice: domain.MustMoney("100"),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cal, err := w.host.PropertyBookings(ctx, owner, p.ID, domain.MustDate("2025-02-02"), domain.MustDate("2025-02-11"))
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if w.bookings.lists != 1 {
		t.Fatalf("bookings queried %d times", w.bookings.lists)
	}
	counts := map[uuid.UUID]int{}
	for _, rc := range cal {
		counts[rc.ID] = len(rc.Bookings)
		if rc.Property.ID != p.ID {
			t.Fatalf("property not attached: %+v", rc)
		}
	}
	if counts[r1.ID] != 2 || counts[r2.ID] != 0 || len(cal) != 2 {
		t.Fatalf("counts %v", counts)
	}

	if _, err := w.host.PropertyBookings(ctx, Caller{UserID: uuid.New()}, p.ID, domain.MustDate("2025-02-02"), domain.MustDate("2025-02-11")); !domain.IsNotFound(err) {
		t.Fatalf("foreign property: %v", err)
	}
}

func TestHostStatusChanges(t *testing.T) {
	w := newWorld()
	owner := Caller{UserID: uuid.New()}
	p := property("P", owner.UserID)
	r := room("r", 2)
	w.props.add(p, r)
	ctx := context.Background()
	b, err := w.bookings.Reserve(ctx, domain.Booking{
		RoomID: r.ID, UserID: uuid.New(),
		CheckIn: domain.MustDate("2025-02-01"), CheckOut: domain.MustDate("2025-02-03"),
		TotalPrice: domain.MustMoney("200"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := w.host.ChangeBookingStatus(ctx, Caller{UserID: uuid.New()}, b.ID, "confirmed"); !domain.IsNotFound(err) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := w.host.ChangeBookingStatus(ctx, owner, b.ID, "completed"); !domain.IsConflict(err) {
		t.Fatalf("pending to completed: %v", err)
	}
	if _, err := w.host.ChangeBookingStatus(ctx, owner, b.ID, "archived"); !domain.IsValidation(err) {
		t.Fatalf("unknown status: %v", err)
	}
	got, err := w.host.ChangeBookingStatus(ctx, owner, b.ID, "confirmed")
	if err != nil || got.Status != domain.StatusConfirmed {
		t.Fatalf("confirm: %+v %v", got, err)
	}
	got, err = w.host.CancelBooking(ctx, owner, b.ID)
	if err != nil || got.Status != domain.StatusCancelled {
		t.Fatalf("cancel: %+v %v", got, err)
	}
	if _, err := w.host.CancelBooking(ctx, owner, b.ID); !domain.IsConflict(err) {
		t.Fatalf("second cancel: %v", err)
	}
}
