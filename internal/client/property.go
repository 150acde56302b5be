package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// PropertyClient reads properties and rooms from the property service.
type PropertyClient struct {
	base *Base
}

func NewPropertyClient(baseURL string, timeout time.Duration, log *zap.Logger) *PropertyClient {
	return &PropertyClient{base: NewBase("property-service", baseURL, timeout, log)}
}

// NearQuery selects properties within RadiusKm of a point. The address
// fields narrow the result further when set.
type NearQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Country   string
	State     string
	City      string
}

// RoomQuery filters the rooms of one property.
type RoomQuery struct {
	PropertyID uuid.UUID
	Capacity   *int
	MaxPrice   *domain.Money
	Amenities  []string
}

func (c *PropertyClient) GetProperty(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	var p domain.Property
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "property/" + id.String()}, &p)
	return p, err
}

func (c *PropertyClient) GetRoom(ctx context.Context, id uuid.UUID) (domain.Room, error) {
	var r domain.Room
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "room/" + id.String()}, &r)
	if err == nil && r.ID == uuid.Nil {
		r.ID = id
	}
	return r, err
}

func (c *PropertyClient) PropertiesNear(ctx context.Context, q NearQuery) ([]domain.Property, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("radius_km", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	setIf(params, "country", q.Country)
	setIf(params, "state", q.State)
	setIf(params, "city", q.City)
	var out []domain.Property
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "properties/near", Query: params}, &out)
	return out, err
}

func (c *PropertyClient) PropertiesInCity(ctx context.Context, country, city, state string) ([]domain.Property, error) {
	params := url.Values{}
	params.Set("country", country)
	params.Set("city", city)
	setIf(params, "state", state)
	var out []domain.Property
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "properties/city", Query: params}, &out)
	return out, err
}

// Rooms returns the rooms of q.PropertyID that satisfy the filters.
func (c *PropertyClient) Rooms(ctx context.Context, q RoomQuery) ([]domain.Room, error) {
	params := url.Values{}
	params.Set("property_uuid", q.PropertyID.String())
	if q.Capacity != nil {
		params.Set("capacity", strconv.Itoa(*q.Capacity))
	}
	if q.MaxPrice != nil {
		params.Set("max_price_per_night", q.MaxPrice.String())
	}
	for _, a := range q.Amenities {
		params.Add("amenities", a)
	}
	var out []domain.Room
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "rooms", Query: params}, &out)
	return out, err
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}
