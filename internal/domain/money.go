package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a room or configuration does not name one.
const DefaultCurrency = "USD"

// Money is a fixed-point currency amount. It always carries exactly two
// fraction digits once rounded and crosses every service boundary as a
// decimal string ("120.00"), never as a float.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// ParseMoney parses a decimal string. The value is not rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ValidationError{Field: "amount", Msg: fmt.Sprintf("invalid amount %q", s)}
	}
	return Money{d: d}, nil
}

// MustMoney is ParseMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal wraps an existing decimal.
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{d: d} }

// Round returns the amount rounded to cents using round-half-up.
// Amounts are never negative here, so decimal's half-away-from-zero
// rounding is the same thing.
func (m Money) Round() Money { return Money{d: m.d.Round(2)} }

// Times multiplies by a whole number of units (nights).
func (m Money) Times(n int) Money { return Money{d: m.d.Mul(decimal.NewFromInt(int64(n)))} }

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }

// Equal compares the exact values. 199.995 is not 200.00.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// String renders the amount with exactly two fraction digits.
func (m Money) String() string { return m.d.StringFixed(2) }

// Exact renders the amount without rounding away sub-cent digits.
func (m Money) Exact() string {
	if m.d.Exponent() < -2 {
		return m.d.String()
	}
	return m.d.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers;
// the property service still emits numbers for room prices.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount in a DECIMAL column.
func (m Money) Value() (driver.Value, error) { return m.String(), nil }

// Scan reads a DECIMAL column.
func (m *Money) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*m = Zero
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case float64:
		*m = Money{d: decimal.NewFromFloat(v)}
		return nil
	case int64:
		*m = Money{d: decimal.NewFromInt(v)}
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*m = Money{d: d}
	return nil
}
