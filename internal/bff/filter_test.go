package bff

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

func cityCriteria() Criteria {
	return Criteria{Country: "NL", City: "Amsterdam"}
}

func dates(in, out string) (*domain.Date, *domain.Date) {
	a, b := domain.MustDate(in), domain.MustDate(out)
	return &a, &b
}

func byID(results []PropertyResult) map[uuid.UUID]PropertyResult {
	out := make(map[uuid.UUID]PropertyResult, len(results))
	for _, r := range results {
		out[r.ID] = r
	}
	return out
}

func TestFilterRoomsSurvivesOneFailingReviewCall(t *testing.T) {
	w := newWorld()
	a, b, c := property("A", uuid.New()), property("B", uuid.New()), property("C", uuid.New())
	w.props.add(a, room("a1", 2))
	w.props.add(b, room("b1", 2))
	w.props.add(c, room("c1", 2))
	w.reviews.byProperty[a.ID] = []domain.Review{{Rating: 4}, {Rating: 5}}
	w.reviews.fail[b.ID] = domain.UpstreamError{Service: "review-service", Status: http.StatusInternalServerError}

	res, err := w.orch.FilterRooms(context.Background(), cityCriteria())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(res.Properties) != 3 {
		t.Fatalf("got %d properties, want 3", len(res.Properties))
	}
	got := byID(res.Properties)
	if r := got[a.ID].AverageRating; r == nil || *r != 4.5 {
		t.Fatalf("rating of A = %v", r)
	}
	if got[b.ID].AverageRating != nil {
		t.Fatalf("failing property should have null rating")
	}
	if got[c.ID].AverageRating != nil {
		t.Fatalf("property without reviews should have null rating")
	}
	if len(res.PartialFailures) != 1 || res.PartialFailures[0].Target != b.ID.String() || res.PartialFailures[0].Step != "average_rating" {
		t.Fatalf("partial failures %+v", res.PartialFailures)
	}
}

func TestFilterRoomsBatchesAvailabilityPerProperty(t *testing.T) {
	w := newWorld()
	p, q := property("P", uuid.New()), property("Q", uuid.New())
	p1, p2, p3 := room("p1", 2), room("p2", 2), room("p3", 2)
	q1 := room("q1", 2)
	w.props.add(p, p1, p2, p3)
	w.props.add(q, q1)

	ctx := context.Background()
	for _, id := range []uuid.UUID{p2.ID, q1.ID} {
		_, err := w.bookings.Reserve(ctx, domain.Booking{
			RoomID: id, UserID: uuid.New(),
			CheckIn: domain.MustDate("2025-03-01"), CheckOut: domain.MustDate("2025-03-04"),
			TotalPrice: domain.MustMoney("300"),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	crit := cityCriteria()
	crit.CheckIn, crit.CheckOut = dates("2025-03-03", "2025-03-05")
	res, err := w.orch.FilterRooms(ctx, crit)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(w.bookings.batches) != 2 {
		t.Fatalf("availability calls = %d, want one per property", len(w.bookings.batches))
	}
	for _, batch := range w.bookings.batches {
		if len(batch) != 3 && len(batch) != 1 {
			t.Fatalf("unexpected batch %v", batch)
		}
	}
	if len(res.Properties) != 1 || res.Properties[0].ID != p.ID {
		t.Fatalf("expected only P to survive, got %+v", res.Properties)
	}
	for _, r := range res.Properties[0].Rooms {
		if r.ID == p2.ID {
			t.Fatal("booked room returned")
		}
	}
	if len(res.Properties[0].Rooms) != 2 {
		t.Fatalf("rooms %d, want 2", len(res.Properties[0].Rooms))
	}
}

func TestFilterRoomsRepricesForCheckIn(t *testing.T) {
	cases := []struct {
		checkIn string
		rate    string
		tier    pricing.Tier
	}{
		{"2025-01-05", "150.00", pricing.TierCeiling},
		{"2025-08-01", "70.00", pricing.TierFloor},
		{"2025-03-01", "100.00", pricing.TierBase},
	}
	for _, tc := range cases {
		t.Run(tc.checkIn, func(t *testing.T) {
			w := newWorld()
			w.props.add(property("P", uuid.New()), room("r", 2))
			crit := cityCriteria()
			in := domain.MustDate(tc.checkIn)
			out := in.AddDate(0, 0, 2)
			crit.CheckIn, crit.CheckOut = &in, &out
			res, err := w.orch.FilterRooms(context.Background(), crit)
			if err != nil {
				t.Fatalf("filter: %v", err)
			}
			r := res.Properties[0].Rooms[0]
			if r.NightlyRate.String() != tc.rate || r.PricingTier != tc.tier {
				t.Fatalf("rate %s (%s), want %s (%s)", r.NightlyRate, r.PricingTier, tc.rate, tc.tier)
			}
		})
	}
}

func TestFilterRoomsUndatedUsesToday(t *testing.T) {
	w := newWorld()
	w.props.add(property("P", uuid.New()), room("r", 2))
	res, err := w.orch.FilterRooms(context.Background(), cityCriteria())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := res.Properties[0].Rooms[0].NightlyRate.String(); got != "150.00" {
		t.Fatalf("rate = %s, want last-minute 150.00", got)
	}
	if len(w.bookings.batches) != 0 {
		t.Fatal("undated search must not query availability")
	}
}

func TestFilterRoomsRequiredFailureAborts(t *testing.T) {
	w := newWorld()
	a, b := property("A", uuid.New()), property("B", uuid.New())
	w.props.add(a, room("a1", 2))
	w.props.add(b, room("b1", 2))
	w.props.roomErr[b.ID] = domain.UpstreamError{Service: "property-service", Status: http.StatusServiceUnavailable}

	_, err := w.orch.FilterRooms(context.Background(), cityCriteria())
	var up domain.UpstreamError
	if !errors.As(err, &up) || up.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 upstream error, got %v", err)
	}
}

func TestFilterRoomsValidatesBeforeCalling(t *testing.T) {
	w := newWorld()
	radius := -1.0
	lat, lng := 52.37, 4.89
	in, out := dates("2025-03-05", "2025-03-05")
	cases := map[string]Criteria{
		"no location":     {},
		"country only":    {Country: "NL"},
		"negative radius": {Latitude: &lat, Longitude: &lng, RadiusKm: &radius},
		"zero nights":     {Country: "NL", City: "Amsterdam", CheckIn: in, CheckOut: out},
		"half a range":    {Country: "NL", City: "Amsterdam", CheckIn: in},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := w.orch.FilterRooms(context.Background(), c); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if w.props.calls != 0 {
		t.Fatalf("property service called %d times", w.props.calls)
	}
}

func TestFilterRoomsRatingAboveDropsUnrated(t *testing.T) {
	w := newWorld()
	good, poor, unrated := property("good", uuid.New()), property("poor", uuid.New()), property("unrated", uuid.New())
	w.props.add(good, room("g", 2))
	w.props.add(poor, room("p", 2))
	w.props.add(unrated, room("u", 2))
	w.reviews.byProperty[good.ID] = []domain.Review{{Rating: 4}}
	w.reviews.byProperty[poor.ID] = []domain.Review{{Rating: 2}, {Rating: 3}}

	crit := cityCriteria()
	threshold := 4.0
	crit.RatingAbove = &threshold
	res, err := w.orch.FilterRooms(context.Background(), crit)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(res.Properties) != 1 || res.Properties[0].ID != good.ID {
		t.Fatalf("got %+v", res.Properties)
	}
}

func TestFilterRoomsSlowReviewIsBounded(t *testing.T) {
	w := newWorld()
	slow := property("slow", uuid.New())
	w.props.add(slow, room("s", 2))
	w.reviews.delay[slow.ID] = 5 * time.Second

	start := time.Now()
	res, err := w.orch.FilterRooms(context.Background(), cityCriteria())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("took %s", elapsed)
	}
	if len(res.Properties) != 1 || res.Properties[0].AverageRating != nil || len(res.PartialFailures) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestFilterRoomsNoCandidates(t *testing.T) {
	w := newWorld()
	res, err := w.orch.FilterRooms(context.Background(), Criteria{Country: "NL", City: "Utrecht"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if res.Properties == nil || len(res.Properties) != 0 {
		t.Fatalf("expected empty, non-nil list: %#v", res.Properties)
	}
}
