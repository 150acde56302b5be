package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

// Validator adapts go-playground/validator to echo.Validator. Failures come
// back as domain.ValidationError so respondError maps them to 400.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.ValidationError{
			Field: fe.Field(),
			Msg:   fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()),
			Err:   err,
		}
	}
	return domain.ValidationError{Msg: err.Error(), Err: err}
}

// bind decodes the request body into dst and runs the validator.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return domain.ValidationError{Msg: "invalid body", Err: err}
	}
	return c.Validate(dst)
}

// respondError writes the status and {"error": ...} body for err.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.JSON(status, body)
}

func errorResponse(err error) (int, echo.Map) {
	var (
		up       domain.UpstreamError
		mismatch domain.PaymentMismatchError
	)
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, echo.Map{"error": err.Error()}
	case domain.IsNotFound(err):
		return http.StatusNotFound, echo.Map{"error": err.Error()}
	case domain.IsConflict(err):
		return http.StatusConflict, echo.Map{"error": err.Error(), "retryable": true}
	case errors.As(err, &mismatch):
		return http.StatusPaymentRequired, echo.Map{
			"error":    "captured amount does not match the booking total",
			"order_id": mismatch.OrderID,
			"expected": mismatch.Expected,
			"captured": mismatch.Captured,
		}
	case errors.As(err, &up):
		return up.HTTPStatus(), echo.Map{"error": err.Error()}
	case domain.IsConfiguration(err):
		return http.StatusServiceUnavailable, echo.Map{"error": err.Error()}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, echo.Map{"error": fmt.Sprint(he.Message)}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal error"}
}

// uuidParam parses the named path parameter.
func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domain.ValidationError{Field: name, Msg: fmt.Sprintf("invalid %s", name), Err: err}
	}
	return id, nil
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c echo.Context, name string) (*domain.Date, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, domain.ValidationError{Field: name, Msg: fmt.Sprintf("invalid %s: want YYYY-MM-DD", name), Err: err}
	}
	return &d, nil
}

// intervalQuery requires both check_in and check_out.
func intervalQuery(c echo.Context) (domain.Interval, error) {
	in, err := dateQuery(c, "check_in")
	if err != nil {
		return domain.Interval{}, err
	}
	out, err := dateQuery(c, "check_out")
	if err != nil {
		return domain.Interval{}, err
	}
	if in == nil || out == nil {
		return domain.Interval{}, domain.ValidationError{Field: "check_in", Msg: "check_in and check_out are required"}
	}
	return domain.NewInterval(*in, *out)
}
