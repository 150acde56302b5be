package pricing

import (
	"testing"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

func money(s string) *domain.Money {
	m := domain.MustMoney(s)
	return &m
}

func tieredRoom() domain.Room {
	return domain.Room{
		ID:        uuid.MustParse("6f1c2d8e-0b7a-4a43-9d55-1c1f3f0e9a10"),
		BasePrice: domain.MustMoney("100"),
		MinPrice:  money("70"),
		MaxPrice:  money("150"),
	}
}

func TestNightlyRateTiers(t *testing.T) {
	today := domain.MustDate("2025-01-01")
	cases := []struct {
		name    string
		checkIn string
		want    string
	}{
		{"last minute ceiling", "2025-01-05", "150.00"},
		{"ceiling boundary at ten days", "2025-01-11", "150.00"},
		{"just outside ceiling", "2025-01-12", "100.00"},
		{"base", "2025-03-01", "100.00"},
		{"exactly six months is still base", "2025-07-01", "100.00"},
		{"beyond six months floor", "2025-08-01", "70.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NightlyRate(tieredRoom(), domain.MustDate(tc.checkIn), today)
			if got.String() != tc.want {
				t.Fatalf("rate = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNightlyRateFallsBackWhenBoundsMissing(t *testing.T) {
	today := domain.MustDate("2025-01-01")
	room := domain.Room{BasePrice: domain.MustMoney("99.99")}
	for _, in := range []string{"2025-01-03", "2025-09-01"} {
		if got := NightlyRate(room, domain.MustDate(in), today); got.String() != "99.99" {
			t.Fatalf("check-in %s: rate = %s, want base", in, got)
		}
	}
	room.MinPrice = money("0")
	if got := NightlyRate(room, domain.MustDate("2025-09-01"), today); got.String() != "99.99" {
		t.Fatalf("zero floor must be ignored, got %s", got)
	}
}

func TestNightlyRateIsDeterministic(t *testing.T) {
	today := domain.MustDate("2025-01-01")
	room := tieredRoom()
	room.BasePrice = domain.MustMoney("33.335")
	in := domain.MustDate("2025-04-15")
	a := NightlyRate(room, in, today).String()
	b := NightlyRate(room, in, today).String()
	if a != b || a != "33.34" {
		t.Fatalf("rates differ or are not rounded half-up: %s vs %s", a, b)
	}
}

func TestQuoteStay(t *testing.T) {
	today := domain.MustDate("2025-01-01")
	q, err := QuoteStay(tieredRoom(), domain.MustDate("2025-03-01"), domain.MustDate("2025-03-04"), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Nights != 3 || q.NightlyRate.String() != "100.00" || q.Total.String() != "300.00" {
		t.Fatalf("unexpected quote %+v", q)
	}
	if q.Tier != TierBase || q.Currency != domain.DefaultCurrency {
		t.Fatalf("unexpected tier/currency %s/%s", q.Tier, q.Currency)
	}
}

func TestQuoteStayRejectsNonPositiveNights(t *testing.T) {
	today := domain.MustDate("2025-01-01")
	for _, out := range []string{"2025-03-01", "2025-02-27"} {
		_, err := QuoteStay(tieredRoom(), domain.MustDate("2025-03-01"), domain.MustDate(out), today)
		if !domain.IsValidation(err) {
			t.Fatalf("check-out %s: expected validation error, got %v", out, err)
		}
	}
}

func TestQuoteAndRecomputeAgree(t *testing.T) {
	room := tieredRoom()
	room.BasePrice = domain.MustMoney("87.125")
	engine := NewEngine(FixedClock(domain.MustDate("2025-01-01")))
	in, out := domain.MustDate("2025-05-10"), domain.MustDate("2025-05-17")

	atOrder, err := engine.Quote(room, in, out)
	if err != nil {
		t.Fatal(err)
	}
	atCapture, err := engine.Quote(room, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if atOrder.Total.String() != atCapture.Total.String() {
		t.Fatalf("totals differ: %s vs %s", atOrder.Total, atCapture.Total)
	}
	if atOrder.Total.String() != "609.91" {
		t.Fatalf("total = %s, want 609.91", atOrder.Total)
	}
}
