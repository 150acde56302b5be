package bff

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewResult struct {
	ID              uuid.UUID        `json:"uuid"`
	PartialFailures []PartialFailure `json:"partial_failures,omitempty"`
}

// PropertyDetail is a property page: its rooms priced for today and its
// rating.
type PropertyDetail struct {
	PropertyResult
	PartialFailures []PartialFailure `json:"partial_failures,omitempty"`
}

// AddReview stores the caller's review and emits ReviewCreated with the
// reviewer's name and the host's email when they can be found.
func (o *Orchestrator) AddReview(ctx context.Context, caller Caller, propertyID uuid.UUID, req ReviewRequest) (ReviewResult, error) {
	if caller.UserID == uuid.Nil {
		return ReviewResult{}, domain.ValidationError{Field: "user_id", Msg: "caller has no user id"}
	}
	if propertyID == uuid.Nil {
		return ReviewResult{}, domain.ValidationError{Field: "property_uuid", Msg: "property_uuid is required"}
	}
	if req.Rating < 1 || req.Rating > 5 {
		return ReviewResult{}, domain.ValidationError{Field: "rating", Msg: "rating must be between 1 and 5"}
	}
	id, err := o.reviews.Add(ctx, domain.Review{
		PropertyID: propertyID,
		UserID:     caller.UserID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return ReviewResult{}, err
	}

	pf := newPartials(o.log)
	c := o.lookupContacts(ctx, caller, propertyID, pf)
	o.emit(ctx, queue.DetailReviewCreated, queue.SourceReview, queue.ReviewCreated{
		ReviewID:     id,
		PropertyID:   propertyID,
		Rating:       req.Rating,
		ReviewerName: c.callerName,
		HostEmail:    c.hostEmail,
	}, pf)
	return ReviewResult{ID: id, PartialFailures: pf.result()}, nil
}

func (o *Orchestrator) PropertyReviews(ctx context.Context, propertyID uuid.UUID) ([]domain.Review, error) {
	reviews, err := o.reviews.ForProperty(ctx, propertyID)
	if reviews == nil && err == nil {
		reviews = []domain.Review{}
	}
	return reviews, err
}

// GetProperty loads a property and its rooms (required) and its rating
// (best-effort).
func (o *Orchestrator) GetProperty(ctx context.Context, id uuid.UUID) (PropertyDetail, error) {
	var (
		prop  domain.Property
		rooms []domain.Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prop, err = o.properties.GetProperty(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		rooms, err = o.properties.Rooms(gctx, client.RoomQuery{PropertyID: id})
		return err
	})
	if err := g.Wait(); err != nil {
		return PropertyDetail{}, err
	}
	if prop.ID == uuid.Nil {
		prop.ID = id
	}

	results := []PropertyResult{{Property: prop, Rooms: priceless(rooms)}}
	pf := newPartials(o.log)
	o.rate(ctx, results, pf)
	o.reprice(results[0].Rooms, o.pricing.Today())
	return PropertyDetail{PropertyResult: results[0], PartialFailures: pf.result()}, nil
}

// GetRoom returns a room priced for a stay starting on checkIn, or today
// when checkIn is nil.
func (o *Orchestrator) GetRoom(ctx context.Context, id uuid.UUID, checkIn *domain.Date) (PricedRoom, error) {
	room, err := o.properties.GetRoom(ctx, id)
	if err != nil {
		return PricedRoom{}, err
	}
	day := o.pricing.Today()
	if checkIn != nil {
		day = *checkIn
	}
	rooms := []PricedRoom{{Room: room}}
	o.reprice(rooms, day)
	return rooms[0], nil
}
