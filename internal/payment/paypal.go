// Package payment opens and captures processor orders and turns a verified
// capture into exactly one booking.
package payment

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/client"
	"github.com/iliyamo/hotel-booking/internal/domain"
)

// Credentials for the PayPal REST API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OrderResult is what the processor returns for a newly opened order.
type OrderResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CaptureResult is the first completed capture of an order.
type CaptureResult struct {
	OrderID   string
	CaptureID string
	Status    string
	Amount    domain.Money
	Currency  string
}

type ppAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string   `json:"id"`
				Status string   `json:"status"`
				Amount ppAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// PayPal is a client for the PayPal orders API. Access tokens are cached in
// tokens until shortly before they expire.
type PayPal struct {
	creds  Credentials
	api    *client.Base
	tokens TokenCache
	log    *zap.Logger
}

// NewPayPal builds a PayPal client. A nil cache means every call fetches a
// fresh token.
func NewPayPal(creds Credentials, timeout time.Duration, tokens TokenCache, log *zap.Logger) *PayPal {
	if log == nil {
		log = zap.NewNop()
	}
	if tokens == nil {
		tokens = noCache{}
	}
	if creds.BaseURL == "" {
		creds.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPal{
		creds:  creds,
		api:    client.NewBase("paypal", creds.BaseURL, timeout, log),
		tokens: tokens,
		log:    log,
	}
}

// Configured reports whether both halves of the credential pair are set.
func (p *PayPal) Configured() bool { return p.creds.Configured() }

// ClientID is handed to browsers so they can render the checkout button.
func (p *PayPal) ClientID() string { return p.creds.ClientID }

// Token returns a bearer token using the client-credentials grant.
func (p *PayPal) Token(ctx context.Context) (string, error) {
	if !p.creds.Configured() {
		key := "PAYPAL_CLIENT_ID"
		if p.creds.ClientID != "" {
			key = "PAYPAL_CLIENT_SECRET"
		}
		return "", domain.ConfigurationError{Key: key}
	}
	cacheKey := "paypal:token:" + p.creds.ClientID
	if tok, ok := p.tokens.Get(ctx, cacheKey); ok {
		return tok, nil
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	err := p.api.Do(ctx, client.Request{
		Method:    http.MethodPost,
		Path:      "v1/oauth2/token",
		Form:      url.Values{"grant_type": {"client_credentials"}},
		BasicAuth: &[2]string{p.creds.ClientID, p.creds.ClientSecret},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", domain.UpstreamError{Service: "paypal", Status: http.StatusBadGateway, Body: "token response without access_token"}
	}
	if ttl := time.Duration(resp.ExpiresIn)*time.Second - time.Minute; ttl > 0 {
		p.tokens.Set(ctx, cacheKey, resp.AccessToken, ttl)
	}
	return resp.AccessToken, nil
}

// CreateOrder opens a CAPTURE-intent order for total. key is sent as the
// PayPal-Request-Id so a retried create does not open a second order.
func (p *PayPal) CreateOrder(ctx context.Context, key string, total domain.Money, currency, reference, description string) (OrderResult, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return OrderResult{}, err
	}
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": reference,
			"description":  description,
			"amount":       ppAmount{CurrencyCode: currency, Value: total.String()},
		}},
	}
	var out OrderResult
	err = p.api.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Path:          "v2/checkout/orders",
		JSON:          body,
		Authorization: "Bearer " + tok,
		Header:        http.Header{"PayPal-Request-Id": {key}},
	}, &out)
	if err != nil {
		return OrderResult{}, err
	}
	if out.ID == "" {
		return OrderResult{}, domain.UpstreamError{Service: "paypal", Status: http.StatusBadGateway, Body: "order response without id"}
	}
	return out, nil
}

// CaptureOrder captures an approved order and returns its first completed
// capture. An order with no completed capture is reported as 402.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (CaptureResult, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return CaptureResult{}, err
	}
	var resp captureResponse
	err = p.api.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Path:          "v2/checkout/orders/" + url.PathEscape(orderID) + "/capture",
		JSON:          map[string]interface{}{},
		Authorization: "Bearer " + tok,
	}, &resp)
	if err != nil {
		return CaptureResult{}, err
	}
	for _, pu := range resp.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if !strings.EqualFold(c.Status, "COMPLETED") {
				continue
			}
			amt, perr := domain.ParseMoney(c.Amount.Value)
			if perr != nil {
				return CaptureResult{}, domain.UpstreamError{Service: "paypal", Status: http.StatusBadGateway, Err: perr}
			}
			return CaptureResult{
				OrderID:   orderID,
				CaptureID: c.ID,
				Status:    strings.ToUpper(c.Status),
				Amount:    amt,
				Currency:  strings.ToUpper(c.Amount.CurrencyCode),
			}, nil
		}
	}
	return CaptureResult{}, domain.UpstreamError{
		Service: "paypal",
		Status:  http.StatusPaymentRequired,
		Body:    "capture not completed (order status " + resp.Status + ")",
	}
}

// RefundCapture returns a full refund of captureID.
func (p *PayPal) RefundCapture(ctx context.Context, captureID string) error {
	tok, err := p.Token(ctx)
	if err != nil {
		return err
	}
	return p.api.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Path:          "v2/payments/captures/" + url.PathEscape(captureID) + "/refund",
		JSON:          map[string]interface{}{},
		Authorization: "Bearer " + tok,
		Header:        http.Header{"PayPal-Request-Id": {"refund-" + captureID}},
	}, nil)
}
