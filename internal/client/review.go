package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

type ReviewClient struct {
	base *Base
}

func NewReviewClient(baseURL string, timeout time.Duration, log *zap.Logger) *ReviewClient {
	return &ReviewClient{base: NewBase("review-service", baseURL, timeout, log)}
}

// ForProperty lists every review of a property.
func (c *ReviewClient) ForProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Review, error) {
	var out []domain.Review
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "reviews/" + propertyID.String()}, &out)
	return out, err
}

// Add stores a review and returns its id.
func (c *ReviewClient) Add(ctx context.Context, r domain.Review) (uuid.UUID, error) {
	var raw json.RawMessage
	err := c.base.Do(ctx, Request{Method: http.MethodPost, Path: "review/" + r.PropertyID.String(), JSON: r}, &raw)
	if err != nil {
		return uuid.Nil, err
	}
	s, err := idFromBody(raw)
	if err != nil {
		return uuid.Nil, domain.UpstreamError{Service: c.base.Service, Status: http.StatusOK, Err: err}
	}
	return uuid.Parse(s)
}
