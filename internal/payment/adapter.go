package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

// Processor is the payment processor seen by the Adapter. *PayPal implements it.
type Processor interface {
	Configured() bool
	ClientID() string
	CreateOrder(ctx context.Context, key string, total domain.Money, currency, reference, description string) (OrderResult, error)
	CaptureOrder(ctx context.Context, orderID string) (CaptureResult, error)
	RefundCapture(ctx context.Context, captureID string) error
}

// RoomSource loads the room being paid for.
type RoomSource interface {
	GetRoom(ctx context.Context, id uuid.UUID) (domain.Room, error)
}

// Reserver writes the booking once money has moved. Both the in-process
// availability.Service and the remote booking client satisfy it.
type Reserver interface {
	IsFree(ctx context.Context, roomID uuid.UUID, checkIn, checkOut domain.Date) (bool, error)
	Reserve(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

// Amount is a currency amount as shown to the payer.
type Amount struct {
	CurrencyCode string       `json:"currency_code"`
	Value        domain.Money `json:"value"`
}

type OrderRequest struct {
	RoomID   uuid.UUID   `json:"room_uuid"`
	CheckIn  domain.Date `json:"check_in"`
	CheckOut domain.Date `json:"check_out"`
	Guests   int         `json:"guests"`
	// IdempotencyKey is forwarded as PayPal-Request-Id; one is generated when empty.
	IdempotencyKey string `json:"-"`
}

type Order struct {
	OrderID     string        `json:"order_id"`
	Amount      Amount        `json:"amount"`
	Nights      int           `json:"nights"`
	NightlyRate domain.Money  `json:"nightly_rate"`
	RoomName    string        `json:"room_name"`
	ClientID    string        `json:"paypal_client_id,omitempty"`
	Quote       pricing.Quote `json:"-"`
}

type CaptureRequest struct {
	OrderID  string      `json:"order_id"`
	RoomID   uuid.UUID   `json:"room_uuid"`
	CheckIn  domain.Date `json:"check_in"`
	CheckOut domain.Date `json:"check_out"`
	Guests   int         `json:"guests"`
	UserID   uuid.UUID   `json:"-"`
}

type Capture struct {
	BookingID     uuid.UUID      `json:"booking_uuid"`
	PaymentStatus string         `json:"payment_status"`
	Amount        Amount         `json:"amount"`
	Booking       domain.Booking `json:"booking"`
	Room          domain.Room    `json:"-"`
}

// Adapter runs the two-phase order/capture flow. The total is priced from
// the room on both phases with the same function; the value quoted in phase
// one is never trusted in phase two.
type Adapter struct {
	processor Processor
	rooms     RoomSource
	reserver  Reserver
	pricing   *pricing.Engine
	currency  string
	log       *zap.Logger
}

// NewAdapter wires an Adapter. currency is used for rooms that do not name
// one; empty means domain.DefaultCurrency.
func NewAdapter(processor Processor, rooms RoomSource, reserver Reserver, engine *pricing.Engine, currency string, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	if engine == nil {
		engine = pricing.NewEngine(nil)
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Adapter{
		processor: processor,
		rooms:     rooms,
		reserver:  reserver,
		pricing:   engine,
		currency:  strings.ToUpper(currency),
		log:       log,
	}
}

// CreateOrder prices the stay and opens a processor order for the total.
func (a *Adapter) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := a.validateStay(req.RoomID, req.CheckIn, req.CheckOut, req.Guests); err != nil {
		return Order{}, err
	}
	if err := a.configured(); err != nil {
		return Order{}, err
	}
	room, q, err := a.priceRoom(ctx, req.RoomID, req.CheckIn, req.CheckOut, req.Guests)
	if err != nil {
		return Order{}, err
	}
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	desc := fmt.Sprintf("%s, %d night(s) from %s", room.Name, q.Nights, q.CheckIn)
	order, err := a.processor.CreateOrder(ctx, key, q.Total, q.Currency, room.ID.String(), desc)
	if err != nil {
		return Order{}, err
	}
	a.log.Info("payment order created",
		zap.String("order_id", order.ID),
		zap.String("room_id", room.ID.String()),
		zap.String("total", q.Total.String()),
		zap.String("currency", q.Currency))
	return Order{
		OrderID:     order.ID,
		Amount:      Amount{CurrencyCode: q.Currency, Value: q.Total},
		Nights:      q.Nights,
		NightlyRate: q.NightlyRate,
		RoomName:    room.Name,
		ClientID:    a.processor.ClientID(),
		Quote:       q,
	}, nil
}

// CaptureOrder captures the order and, only if the captured amount equals
// the recomputed total, reserves a pending booking. If the booking cannot be
// written after money moved, the capture is refunded.
func (a *Adapter) CaptureOrder(ctx context.Context, req CaptureRequest) (Capture, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return Capture{}, domain.ValidationError{Field: "order_id", Msg: "order_id is required"}
	}
	if req.UserID == uuid.Nil {
		return Capture{}, domain.ValidationError{Field: "user_id", Msg: "user_id is required"}
	}
	if err := a.validateStay(req.RoomID, req.CheckIn, req.CheckOut, req.Guests); err != nil {
		return Capture{}, err
	}
	if err := a.configured(); err != nil {
		return Capture{}, err
	}
	room, q, err := a.priceRoom(ctx, req.RoomID, req.CheckIn, req.CheckOut, req.Guests)
	if err != nil {
		return Capture{}, err
	}

	free, err := a.reserver.IsFree(ctx, room.ID, req.CheckIn, req.CheckOut)
	if err != nil {
		return Capture{}, err
	}
	if !free {
		return Capture{}, domain.ConflictError{Resource: "room", Msg: "room is no longer available for the requested dates"}
	}

	captured, err := a.processor.CaptureOrder(ctx, req.OrderID)
	if err != nil {
		return Capture{}, err
	}
	if !captured.Amount.Equal(q.Total) || !strings.EqualFold(captured.Currency, q.Currency) {
		a.log.Error("captured amount does not match quote",
			zap.String("order_id", req.OrderID),
			zap.String("capture_id", captured.CaptureID),
			zap.String("expected", q.Total.String()+" "+q.Currency),
			zap.String("captured", captured.Amount.Exact()+" "+captured.Currency))
		mismatch := domain.PaymentMismatchError{
			OrderID:  req.OrderID,
			Expected: q.Total.String() + " " + q.Currency,
			Captured: captured.Amount.Exact() + " " + captured.Currency,
		}
		return Capture{}, a.compensate(ctx, captured, mismatch)
	}

	booking, err := a.reserver.Reserve(ctx, domain.Booking{
		RoomID:     room.ID,
		UserID:     req.UserID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		TotalPrice: q.Total,
		Status:     domain.StatusPending,
	})
	if err != nil {
		if domain.IsTimeout(err) {
			// The booking may or may not exist; refunding could strand a paid guest.
			a.log.Error("booking outcome unknown after capture",
				zap.String("order_id", req.OrderID),
				zap.String("capture_id", captured.CaptureID),
				zap.Error(err))
			return Capture{}, err
		}
		return Capture{}, a.compensate(ctx, captured, err)
	}

	a.log.Info("payment captured and booking reserved",
		zap.String("order_id", req.OrderID),
		zap.String("capture_id", captured.CaptureID),
		zap.String("booking_id", booking.ID.String()))
	return Capture{
		BookingID:     booking.ID,
		PaymentStatus: captured.Status,
		Amount:        Amount{CurrencyCode: captured.Currency, Value: captured.Amount},
		Booking:       booking,
		Room:          room,
	}, nil
}

// Quote prices a stay without touching the processor.
func (a *Adapter) Quote(ctx context.Context, roomID uuid.UUID, checkIn, checkOut domain.Date, guests int) (pricing.Quote, error) {
	if err := a.validateStay(roomID, checkIn, checkOut, guests); err != nil {
		return pricing.Quote{}, err
	}
	_, q, err := a.priceRoom(ctx, roomID, checkIn, checkOut, guests)
	return q, err
}

func (a *Adapter) validateStay(roomID uuid.UUID, checkIn, checkOut domain.Date, guests int) error {
	if roomID == uuid.Nil {
		return domain.ValidationError{Field: "room_uuid", Msg: "room_uuid is required"}
	}
	if _, err := domain.NewInterval(checkIn, checkOut); err != nil {
		return err
	}
	if checkIn.Before(a.pricing.Today()) {
		return domain.ValidationError{Field: "check_in", Msg: "check_in is in the past"}
	}
	if guests <= 0 {
		return domain.ValidationError{Field: "guests", Msg: "guests must be positive"}
	}
	return nil
}

func (a *Adapter) configured() error {
	if a.processor == nil || !a.processor.Configured() {
		return domain.ConfigurationError{Key: "PAYPAL_CLIENT_ID", Msg: "payment processor credentials are not configured"}
	}
	return nil
}

func (a *Adapter) priceRoom(ctx context.Context, roomID uuid.UUID, checkIn, checkOut domain.Date, guests int) (domain.Room, pricing.Quote, error) {
	room, err := a.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, pricing.Quote{}, err
	}
	if room.ID == uuid.Nil {
		room.ID = roomID
	}
	if room.Capacity > 0 && guests > room.Capacity {
		return domain.Room{}, pricing.Quote{}, domain.ValidationError{
			Field: "guests",
			Msg:   fmt.Sprintf("room sleeps %d, requested %d guests", room.Capacity, guests),
		}
	}
	if room.Currency == "" {
		room.Currency = a.currency
	}
	q, err := a.pricing.Quote(room, checkIn, checkOut)
	if err != nil {
		return domain.Room{}, pricing.Quote{}, err
	}
	return room, q, nil
}

// compensate refunds a capture that must not stand and returns cause. A
// failed refund is logged and folded into the returned error.
func (a *Adapter) compensate(ctx context.Context, captured CaptureResult, cause error) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.processor.RefundCapture(rctx, captured.CaptureID); err != nil {
		a.log.Error("refund after rejected capture failed",
			zap.String("order_id", captured.OrderID),
			zap.String("capture_id", captured.CaptureID),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return fmt.Errorf("%w (refund of capture %s failed: %v)", cause, captured.CaptureID, err)
	}
	a.log.Warn("capture refunded",
		zap.String("order_id", captured.OrderID),
		zap.String("capture_id", captured.CaptureID),
		zap.NamedError("cause", cause))
	return cause
}
