package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

// fakePayPal records calls and answers like the sandbox.
type fakePayPal struct {
	mu          sync.Mutex
	calls       []string
	tokens      int
	requestIDs  []string
	orderAmount ppAmount
	capture     ppAmount
	refunds     []string
}

func (f *fakePayPal) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			if user, pass, ok := r.BasicAuth(); !ok || user != "client" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.tokens++
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case r.URL.Path == "/v2/checkout/orders":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
			var body struct {
				PurchaseUnits []struct {
					Amount ppAmount `json:"amount"`
				} `json:"purchase_units"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.PurchaseUnits) != 1 {
				t.Errorf("bad order body: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.orderAmount = body.PurchaseUnits[0].Amount
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED"}`))
		case strings.HasSuffix(r.URL.Path, "/capture"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "ORDER-1",
				"status": "COMPLETED",
				"purchase_units": []interface{}{map[string]interface{}{
					"payments": map[string]interface{}{
						"captures": []interface{}{map[string]interface{}{
							"id": "CAP-1", "status": "COMPLETED", "amount": f.capture,
						}},
					},
				}},
			})
		case strings.HasPrefix(r.URL.Path, "/v2/payments/captures/"):
			f.refunds = append(f.refunds, strings.Split(r.URL.Path, "/")[4])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"REF-1","status":"COMPLETED"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakePayPal) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type paypalRecord struct {
	tokens      int
	requestIDs  []string
	orderAmount ppAmount
	refunds     []string
}

// snapshot copies the recorded state under the lock.
func (f *fakePayPal) snapshot() paypalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return paypalRecord{
		tokens:      f.tokens,
		requestIDs:  append([]string(nil), f.requestIDs...),
		orderAmount: f.orderAmount,
		refunds:     append([]string(nil), f.refunds...),
	}
}

type roomSource map[uuid.UUID]domain.Room

func (s roomSource) GetRoom(_ context.Context, id uuid.UUID) (domain.Room, error) {
	r, ok := s[id]
	if !ok {
		return domain.Room{}, domain.NotFoundError{Resource: "room", ID: id.String()}
	}
	return r, nil
}

// conflictingReserver says the room is free and then loses the race.
type conflictingReserver struct{}

func (conflictingReserver) IsFree(context.Context, uuid.UUID, domain.Date, domain.Date) (bool, error) {
	return true, nil
}

func (conflictingReserver) Reserve(context.Context, domain.Booking) (domain.Booking, error) {
	return domain.Booking{}, domain.ConflictError{Resource: "booking", Msg: "room is not available for the requested dates"}
}

type fixture struct {
	paypal  *fakePayPal
	store   *availability.MemoryStore
	svc     *availability.Service
	adapter *Adapter
	room    domain.Room
}

func newFixture(t *testing.T, creds Credentials, tokens TokenCache) *fixture {
	t.Helper()
	f := &fixture{paypal: &fakePayPal{capture: ppAmount{CurrencyCode: "USD", Value: "200.00"}}}
	srv := httptest.NewServer(f.paypal.handler(t))
	t.Cleanup(srv.Close)
	creds.BaseURL = srv.URL

	f.room = domain.Room{
		ID:        uuid.New(),
		Name:      "Garden Suite",
		Capacity:  2,
		BasePrice: domain.MustMoney("100"),
		Currency:  "USD",
	}
	f.store = availability.NewMemoryStore()
	f.svc = availability.NewService(f.store, nil)
	engine := pricing.NewEngine(pricing.FixedClock(domain.MustDate("2025-10-01")))
	f.adapter = NewAdapter(NewPayPal(creds, time.Second, tokens, nil), roomSource{f.room.ID: f.room}, f.svc, engine, "USD", nil)
	return f
}

func (f *fixture) orderRequest() OrderRequest {
	return OrderRequest{
		RoomID:         f.room.ID,
		CheckIn:        domain.MustDate("2025-10-12"),
		CheckOut:       domain.MustDate("2025-10-14"),
		Guests:         2,
		IdempotencyKey: "checkout-42",
	}
}

func (f *fixture) captureRequest(user uuid.UUID) CaptureRequest {
	o := f.orderRequest()
	return CaptureRequest{OrderID: "ORDER-1", RoomID: o.RoomID, CheckIn: o.CheckIn, CheckOut: o.CheckOut, Guests: o.Guests, UserID: user}
}

var testCreds = Credentials{ClientID: "client", ClientSecret: "secret"}

func TestOrderThenCaptureReservesPendingBooking(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	ctx := context.Background()

	order, err := f.adapter.CreateOrder(ctx, f.orderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderID != "ORDER-1" || order.Nights != 2 || order.RoomName != "Garden Suite" || order.ClientID != "client" {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.Amount.Value.String() != "200.00" || order.NightlyRate.String() != "100.00" {
		t.Fatalf("amount %s rate %s", order.Amount.Value, order.NightlyRate)
	}
	seen := f.paypal.snapshot()
	if seen.orderAmount.Value != "200.00" || seen.orderAmount.CurrencyCode != "USD" {
		t.Fatalf("processor saw %+v", seen.orderAmount)
	}
	if len(seen.requestIDs) != 1 || seen.requestIDs[0] != "checkout-42" {
		t.Fatalf("idempotency keys %v", seen.requestIDs)
	}

	user := uuid.New()
	res, err := f.adapter.CaptureOrder(ctx, f.captureRequest(user))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Amount.Value.String() != order.Amount.Value.String() {
		t.Fatalf("captured %s, quoted %s", res.Amount.Value, order.Amount.Value)
	}
	if res.PaymentStatus != "COMPLETED" || res.Booking.Status != domain.StatusPending || res.Booking.UserID != user {
		t.Fatalf("unexpected capture %+v", res)
	}
	got, err := f.svc.Get(ctx, res.BookingID)
	if err != nil || got.TotalPrice.String() != "200.00" {
		t.Fatalf("stored booking %+v, %v", got, err)
	}
}

func TestMissingCredentialsFailBeforeAnyCall(t *testing.T) {
	f := newFixture(t, Credentials{ClientID: "client"}, nil)

	_, err := f.adapter.CreateOrder(context.Background(), f.orderRequest())
	if !domain.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, err = f.adapter.CaptureOrder(context.Background(), f.captureRequest(uuid.New()))
	if !domain.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if n := f.paypal.count(""); n != 0 {
		t.Fatalf("processor called %d times", n)
	}
}

func TestAmountMismatchRefundsAndBooksNothing(t *testing.T) {
	for _, captured := range []string{"199.99", "199.995", "200.001"} {
		t.Run(captured, func(t *testing.T) {
			f := newFixture(t, testCreds, nil)
			f.paypal.capture = ppAmount{CurrencyCode: "USD", Value: captured}

			_, err := f.adapter.CaptureOrder(context.Background(), f.captureRequest(uuid.New()))
			var mismatch domain.PaymentMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected payment mismatch, got %v", err)
			}
			if mismatch.Captured != captured+" USD" || mismatch.Expected != "200.00 USD" {
				t.Fatalf("mismatch %+v", mismatch)
			}
			list, _ := f.svc.List(context.Background(), domain.BookingFilter{RoomIDs: []uuid.UUID{f.room.ID}})
			if len(list) != 0 {
				t.Fatalf("booking created despite mismatch: %+v", list)
			}
			if refunds := f.paypal.snapshot().refunds; len(refunds) != 1 || refunds[0] != "CAP-1" {
				t.Fatalf("refunds %v", refunds)
			}
		})
	}
}

func TestCurrencyMismatchIsAMismatch(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	f.paypal.capture = ppAmount{CurrencyCode: "EUR", Value: "200.00"}

	_, err := f.adapter.CaptureOrder(context.Background(), f.captureRequest(uuid.New()))
	if !domain.IsPaymentMismatch(err) {
		t.Fatalf("expected payment mismatch, got %v", err)
	}
}

func TestTakenRoomIsNeverCaptured(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	b := domain.Booking{
		RoomID: f.room.ID, UserID: uuid.New(),
		CheckIn: domain.MustDate("2025-10-13"), CheckOut: domain.MustDate("2025-10-15"),
		TotalPrice: domain.MustMoney("200"),
	}
	if _, err := f.svc.Reserve(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.adapter.CaptureOrder(context.Background(), f.captureRequest(uuid.New()))
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n := f.paypal.count("POST /v2/checkout/orders/"); n != 0 {
		t.Fatalf("capture called %d times", n)
	}
}

func TestReserveConflictAfterCaptureRefunds(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	f.adapter.reserver = conflictingReserver{}

	_, err := f.adapter.CaptureOrder(context.Background(), f.captureRequest(uuid.New()))
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if refunds := f.paypal.snapshot().refunds; len(refunds) != 1 {
		t.Fatalf("refunds %v", refunds)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key, token string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = token
}

func TestTokenIsCached(t *testing.T) {
	cache := &mapCache{m: map[string]string{}}
	f := newFixture(t, testCreds, cache)
	for i := 0; i < 3; i++ {
		req := f.orderRequest()
		req.IdempotencyKey = ""
		if _, err := f.adapter.CreateOrder(context.Background(), req); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}
	rec := f.paypal.snapshot()
	if rec.tokens != 1 {
		t.Fatalf("token fetched %d times", rec.tokens)
	}
	if cache.m["paypal:token:client"] != "tok" {
		t.Fatalf("cache %v", cache.m)
	}
	seen := map[string]bool{}
	for _, id := range rec.requestIDs {
		if id == "" || seen[id] {
			t.Fatalf("request ids %v", rec.requestIDs)
		}
		seen[id] = true
	}
}

func TestOrderValidation(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	cases := map[string]func(*OrderRequest){
		"past check-in":   func(r *OrderRequest) { r.CheckIn = domain.MustDate("2025-09-30") },
		"zero nights":     func(r *OrderRequest) { r.CheckOut = r.CheckIn },
		"no guests":       func(r *OrderRequest) { r.Guests = 0 },
		"over capacity":   func(r *OrderRequest) { r.Guests = 3 },
		"missing room id": func(r *OrderRequest) { r.RoomID = uuid.Nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := f.orderRequest()
			mutate(&req)
			if _, err := f.adapter.CreateOrder(context.Background(), req); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if n := f.paypal.count("POST /v2/checkout/orders"); n != 0 {
		t.Fatalf("orders opened: %d", n)
	}
}

func TestCaptureRequiresOrderAndUser(t *testing.T) {
	f := newFixture(t, testCreds, nil)
	req := f.captureRequest(uuid.Nil)
	if _, err := f.adapter.CaptureOrder(context.Background(), req); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	req = f.captureRequest(uuid.New())
	req.OrderID = " "
	if _, err := f.adapter.CaptureOrder(context.Background(), req); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
