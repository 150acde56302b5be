// Package client talks to the collaborator services (property, booking,
// review, user) over JSON/HTTP. Every non-2xx answer and every transport
// failure comes back as a domain.UpstreamError carrying the originating
// status, so callers can propagate it unchanged.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// maxBody caps how much of a response is read into memory.
const maxBody = 4 << 20

// Request describes one outbound call relative to a Base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Authorization is forwarded verbatim as the Authorization header.
	Authorization string
	// JSON is marshalled as the request body. Form takes precedence.
	JSON interface{}
	Form url.Values
	// BasicAuth, when non-nil, holds user and password.
	BasicAuth *[2]string
}

// Base is a JSON client bound to one service.
type Base struct {
	Service string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewBase returns a client for service rooted at baseURL. Each call is
// bounded by timeout in addition to the caller's context.
func NewBase(service, baseURL string, timeout time.Duration, log *zap.Logger) *Base {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Base{
		Service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Do performs r and decodes a 2xx JSON body into out (which may be nil).
func (b *Base) Do(ctx context.Context, r Request, out interface{}) error {
	u := b.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.JSON != nil:
		buf, err := json.Marshal(r.JSON)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", b.Service, err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", b.Service, err)
	}
	for k, vals := range r.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.Authorization != "" {
		req.Header.Set("Authorization", r.Authorization)
	}
	if r.BasicAuth != nil {
		req.SetBasicAuth(r.BasicAuth[0], r.BasicAuth[1])
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		b.log.Debug("upstream call failed",
			zap.String("service", b.Service),
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.Error(err))
		return domain.UpstreamError{Service: b.Service, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.UpstreamError{Service: b.Service, Status: resp.StatusCode, Err: err}
	}
	b.log.Debug("upstream call",
		zap.String("service", b.Service),
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.UpstreamError{Service: b.Service, Status: resp.StatusCode, Body: errorBody(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.UpstreamError{Service: b.Service, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorBody extracts a readable message from an error response. JSON bodies
// of the form {"error": ...} or {"detail": ...} are unwrapped.
func errorBody(data []byte) string {
	var shaped struct {
		Error  interface{} `json:"error"`
		Detail interface{} `json:"detail"`
	}
	if json.Unmarshal(data, &shaped) == nil {
		if s, ok := shaped.Error.(string); ok && s != "" {
			return s
		}
		if s, ok := shaped.Detail.(string); ok && s != "" {
			return s
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

// idFromBody accepts either a bare JSON string or an object with a uuid or
// id field, which is how the collaborator services answer creates.
func idFromBody(raw json.RawMessage) (string, error) {
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s, nil
	}
	var obj struct {
		UUID string `json:"uuid"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.UUID != "" {
		return obj.UUID, nil
	}
	if obj.ID != "" {
		return obj.ID, nil
	}
	return "", fmt.Errorf("response carries no id")
}
