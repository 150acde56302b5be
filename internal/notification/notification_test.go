package notification

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

func strp(s string) *string { return &s }

func TestRenderBookingConfirmed(t *testing.T) {
	env, err := queue.NewEnvelope(queue.DetailBookingConfirmed, queue.SourceBooking, queue.BookingConfirmed{
		BookingID:    uuid.New(),
		GuestEmail:   strp("guest@example.com"),
		PropertyName: strp("Canal House"),
		CheckIn:      domain.MustDate("2025-02-01"),
	})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	msgs, err := Render(env)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("render: %v %v", msgs, err)
	}
	m := msgs[0]
	if m.To != "guest@example.com" || m.Subject != "Your booking is confirmed!" ||
		m.Body != "Thank you for booking Canal House. Your check-in date is 2025-02-01." {
		t.Fatalf("unexpected message %+v", m)
	}
}

func TestRenderReviewCreated(t *testing.T) {
	env, _ := queue.NewEnvelope(queue.DetailReviewCreated, queue.SourceReview, queue.ReviewCreated{
		Rating: 4, ReviewerName: strp("Ada Lovelace"), HostEmail: strp("host@example.com"),
	})
	msgs, err := Render(env)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("render: %v %v", msgs, err)
	}
	if msgs[0].Body != "Ada Lovelace rated you 4/5. View it in your dashboard." {
		t.Fatalf("body %q", msgs[0].Body)
	}
}

func TestRenderSkipsIncompleteEvents(t *testing.T) {
	env, _ := queue.NewEnvelope(queue.DetailBookingConfirmed, queue.SourceBooking, queue.BookingConfirmed{
		PropertyName: strp("Canal House"), CheckIn: domain.MustDate("2025-02-01"),
	})
	msgs, err := Render(env)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v %v", msgs, err)
	}
}

func TestRenderRejectsUnknownType(t *testing.T) {
	if _, err := Render(queue.Envelope{DetailType: "RoomRepainted", Detail: []byte(`{}`)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotifierWritesToFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "notifications.log")
	n := NewNotifier(NewFileSink(path), nil)
	env, _ := queue.NewEnvelope(queue.DetailReviewCreated, queue.SourceReview, queue.ReviewCreated{
		Rating: 5, ReviewerName: strp("Grace Hopper"), HostEmail: strp("host@example.com"),
	})
	if err := n.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "to=host@example.com") || !strings.Contains(string(data), "Grace Hopper rated you 5/5") {
		t.Fatalf("log line %q", data)
	}
}
