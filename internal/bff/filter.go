package bff

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/pricing"
)

// Criteria is a room search. A location is required: either a point and
// radius, or a country and city. Dates are optional but come as a pair.
type Criteria struct {
	CheckIn  *domain.Date
	CheckOut *domain.Date

	Capacity  *int
	MaxPrice  *domain.Money
	Amenities []string

	Country string
	State   string
	City    string

	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64

	RatingAbove *float64
}

func (c Criteria) dated() bool { return c.CheckIn != nil && c.CheckOut != nil }

func (c Criteria) near() bool { return c.Latitude != nil && c.Longitude != nil && c.RadiusKm != nil }

func (c Criteria) inCity() bool {
	return strings.TrimSpace(c.Country) != "" && strings.TrimSpace(c.City) != ""
}

// Validate runs before any call is made.
func (c Criteria) Validate() error {
	if !c.near() && !c.inCity() {
		return domain.ValidationError{Field: "location", Msg: "location must be provided: latitude, longitude and radius_km, or country and city"}
	}
	if c.RadiusKm != nil && *c.RadiusKm <= 0 {
		return domain.ValidationError{Field: "radius_km", Msg: "radius_km must be positive"}
	}
	if (c.CheckIn == nil) != (c.CheckOut == nil) {
		return domain.ValidationError{Field: "check_out", Msg: "check_in and check_out must be given together"}
	}
	if c.dated() {
		if _, err := domain.NewInterval(*c.CheckIn, *c.CheckOut); err != nil {
			return err
		}
	}
	if c.Capacity != nil && *c.Capacity <= 0 {
		return domain.ValidationError{Field: "capacity", Msg: "capacity must be positive"}
	}
	if c.MaxPrice != nil && !c.MaxPrice.IsPositive() {
		return domain.ValidationError{Field: "max_price", Msg: "max_price must be positive"}
	}
	if c.RatingAbove != nil && (*c.RatingAbove < 0 || *c.RatingAbove > 5) {
		return domain.ValidationError{Field: "rating_above", Msg: "rating_above must be between 0 and 5"}
	}
	return nil
}

// PricedRoom is a room with the nightly rate that applies to the searched
// check-in date.
type PricedRoom struct {
	domain.Room
	NightlyRate domain.Money `json:"nightly_rate"`
	PricingTier pricing.Tier `json:"pricing_tier"`
}

// PropertyResult is a property with its matching rooms. AverageRating is
// null when there are no reviews or the lookup failed.
type PropertyResult struct {
	domain.Property
	AverageRating *float64     `json:"average_rating"`
	Rooms         []PricedRoom `json:"rooms"`
}

type FilterResult struct {
	Properties      []PropertyResult `json:"properties"`
	PartialFailures []PartialFailure `json:"partial_failures,omitempty"`
}

// FilterRooms finds bookable rooms. Location, room and availability calls
// are required and abort the search with the failing call's error; rating
// lookups are enrichment and only ever null the rating.
func (o *Orchestrator) FilterRooms(ctx context.Context, c Criteria) (FilterResult, error) {
	if err := c.Validate(); err != nil {
		return FilterResult{}, err
	}
	props, err := o.locate(ctx, c)
	if err != nil {
		return FilterResult{}, err
	}

	candidates := make([]PropertyResult, len(props))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fanOut)
	for i, p := range props {
		g.Go(func() error {
			rooms, err := o.availableRooms(gctx, p.ID, c)
			if err != nil {
				return err
			}
			candidates[i] = PropertyResult{Property: p, Rooms: priceless(rooms)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FilterResult{}, err
	}

	results := candidates[:0]
	for _, pr := range candidates {
		if len(pr.Rooms) > 0 {
			results = append(results, pr)
		}
	}

	pf := newPartials(o.log)
	o.rate(ctx, results, pf)

	day := o.pricing.Today()
	if c.CheckIn != nil {
		day = *c.CheckIn
	}
	for i := range results {
		o.reprice(results[i].Rooms, day)
	}

	if c.RatingAbove != nil {
		kept := results[:0]
		for _, pr := range results {
			if pr.AverageRating != nil && *pr.AverageRating >= *c.RatingAbove {
				kept = append(kept, pr)
			}
		}
		results = kept
	}

	return FilterResult{Properties: append([]PropertyResult{}, results...), PartialFailures: pf.result()}, nil
}

func (o *Orchestrator) locate(ctx context.Context, c Criteria) ([]domain.Property, error) {
	if c.near() {
		return o.properties.PropertiesNear(ctx, client.NearQuery{
			Latitude:  *c.Latitude,
			Longitude: *c.Longitude,
			RadiusKm:  *c.RadiusKm,
			Country:   c.Country,
			State:     c.State,
			City:      c.City,
		})
	}
	return o.properties.PropertiesInCity(ctx, c.Country, c.City, c.State)
}

// availableRooms loads a property's matching rooms and, for a dated search,
// keeps the free ones using one availability call for the whole property.
// TODO: batch availability across properties once the booking service's
// batch endpoint is load-tested with large room sets.
func (o *Orchestrator) availableRooms(ctx context.Context, propertyID uuid.UUID, c Criteria) ([]domain.Room, error) {
	rooms, err := o.properties.Rooms(ctx, client.RoomQuery{
		PropertyID: propertyID,
		Capacity:   c.Capacity,
		MaxPrice:   c.MaxPrice,
		Amenities:  c.Amenities,
	})
	if err != nil || len(rooms) == 0 || !c.dated() {
		return rooms, err
	}
	ids := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	free, err := o.bookings.AreFree(ctx, ids, *c.CheckIn, *c.CheckOut)
	if err != nil {
		return nil, err
	}
	kept := rooms[:0]
	for _, r := range rooms {
		if free[r.ID] {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// rate fills AverageRating for every property concurrently. It never fails.
func (o *Orchestrator) rate(ctx context.Context, results []PropertyResult, pf *partials) {
	if len(results) == 0 {
		return
	}
	ctx, cancel := o.enrichContext(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(o.fanOut)
	for i := range results {
		pr := &results[i]
		g.Go(func() error {
			reviews, err := o.reviews.ForProperty(ctx, pr.ID)
			if err != nil {
				pf.add("average_rating", pr.ID.String(), err)
				return nil
			}
			pr.AverageRating = domain.AverageRating(reviews)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) reprice(rooms []PricedRoom, checkIn domain.Date) {
	today := o.pricing.Today()
	for i := range rooms {
		rooms[i].NightlyRate, rooms[i].PricingTier = pricing.RateFor(rooms[i].Room, checkIn, today)
	}
}

func priceless(rooms []domain.Room) []PricedRoom {
	out := make([]PricedRoom, len(rooms))
	for i, r := range rooms {
		out[i] = PricedRoom{Room: r}
	}
	return out
}
