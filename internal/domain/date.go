package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. Check-in and check-out are dates, not
// instants, so every value is normalised to midnight UTC.
type Date struct {
	t time.Time
}

// NewDate builds a date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ValidationError{Field: "date", Msg: fmt.Sprintf("invalid date %q", s)}
}

// MustDate is ParseDate for tests and fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDate mirrors time.Time.AddDate.
func (d Date) AddDate(years, months, days int) Date {
	return Date{t: d.t.AddDate(years, months, days)}
}

// DaysUntil returns the number of whole days from d to o (negative when o
// is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ValidationError{Field: "date", Msg: "date must be a string"}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam lets echo bind dates from query strings.
func (d *Date) UnmarshalParam(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	}
	return fmt.Errorf("date: unsupported scan type %T", src)
}

func (d *Date) scanString(s string) error {
	// DATETIME columns come back as "2006-01-02 15:04:05" without parseTime
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Interval is a half-open stay [CheckIn, CheckOut): the check-out day is
// free for the next guest.
type Interval struct {
	CheckIn  Date
	CheckOut Date
}

// NewInterval validates that the stay is at least one night long.
func NewInterval(checkIn, checkOut Date) (Interval, error) {
	iv := Interval{CheckIn: checkIn, CheckOut: checkOut}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate rejects missing dates and non-positive stays.
func (iv Interval) Validate() error {
	if iv.CheckIn.IsZero() {
		return ValidationError{Field: "check_in", Msg: "check_in is required"}
	}
	if iv.CheckOut.IsZero() {
		return ValidationError{Field: "check_out", Msg: "check_out is required"}
	}
	if iv.Nights() <= 0 {
		return ValidationError{Field: "check_out", Msg: "check_out must be after check_in"}
	}
	return nil
}

// Nights is the number of nights in the stay.
func (iv Interval) Nights() int { return iv.CheckIn.DaysUntil(iv.CheckOut) }

// Overlaps reports whether two half-open intervals share any day.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.CheckIn.Before(o.CheckOut) && iv.CheckOut.After(o.CheckIn)
}
