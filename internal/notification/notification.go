// Package notification turns domain events into messages for guests and
// hosts and hands them to a delivery sink.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/queue"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sink delivers messages.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

// Notifier renders events and sends the resulting messages.
type Notifier struct {
	sink Sink
	log  *zap.Logger
}

func NewNotifier(sink Sink, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sink: sink, log: log}
}

// Handle is a queue.Handler.
func (n *Notifier) Handle(ctx context.Context, env queue.Envelope) error {
	msgs, err := Render(env)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		n.log.Info("event has nothing to notify",
			zap.String("id", env.ID),
			zap.String("detail_type", env.DetailType))
		return nil
	}
	for _, m := range msgs {
		if err := n.sink.Send(ctx, m); err != nil {
			return fmt.Errorf("send to %s: %w", m.To, err)
		}
		n.log.Info("notification sent",
			zap.String("id", env.ID),
			zap.String("detail_type", env.DetailType),
			zap.String("subject", m.Subject))
	}
	return nil
}

// Render builds the messages for an event. Events missing a recipient or
// the fields the template needs produce no message.
func Render(env queue.Envelope) ([]Message, error) {
	switch env.DetailType {
	case queue.DetailBookingConfirmed:
		var ev queue.BookingConfirmed
		if err := json.Unmarshal(env.Detail, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.DetailType, err)
		}
		if empty(ev.GuestEmail) || empty(ev.PropertyName) || ev.CheckIn.IsZero() {
			return nil, nil
		}
		return []Message{{
			To:      *ev.GuestEmail,
			Subject: "Your booking is confirmed!",
			Body:    fmt.Sprintf("Thank you for booking %s. Your check-in date is %s.", *ev.PropertyName, ev.CheckIn),
		}}, nil
	case queue.DetailReviewCreated:
		var ev queue.ReviewCreated
		if err := json.Unmarshal(env.Detail, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.DetailType, err)
		}
		if empty(ev.HostEmail) || empty(ev.ReviewerName) || ev.Rating == 0 {
			return nil, nil
		}
		return []Message{{
			To:      *ev.HostEmail,
			Subject: "You've received a new review",
			Body:    fmt.Sprintf("%s rated you %d/5. View it in your dashboard.", *ev.ReviewerName, ev.Rating),
		}}, nil
	}
	return nil, fmt.Errorf("unknown detail type %q", env.DetailType)
}

func empty(s *string) bool { return s == nil || *s == "" }
