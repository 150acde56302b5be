package client

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// UserClient reads profiles from the user service. The caller's
// Authorization header is forwarded unchanged; this client never inspects it.
type UserClient struct {
	base *Base
}

func NewUserClient(baseURL string, timeout time.Duration, log *zap.Logger) *UserClient {
	return &UserClient{base: NewBase("user-service", baseURL, timeout, log)}
}

func (c *UserClient) Me(ctx context.Context, authorization string) (domain.User, error) {
	var u domain.User
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "me", Authorization: authorization}, &u)
	return u, err
}

func (c *UserClient) Get(ctx context.Context, id uuid.UUID, authorization string) (domain.User, error) {
	var u domain.User
	err := c.base.Do(ctx, Request{Method: http.MethodGet, Path: "user/" + id.String(), Authorization: authorization}, &u)
	return u, err
}
