// Package core holds the ledger domain model: money, periods, entities and
// the derived summaries the engines produce.
//
// Money is kept as integer minor units. Decimal values cross the API boundary
// through shopspring/decimal so no floating point is ever involved in sums.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents).
type Money struct {
	Cents int64
}

func Cents(c int64) Money {
	return Money{Cents: c}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal returns the amount with two fractional digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "150.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float is for chart rendering only; never sum the result.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// Decimals beyond these bounds do not fit in int64 cents.
var (
	maxMoney = decimal.New(math.MaxInt64/100, 0)
	minMoney = maxMoney.Neg()
)

// MoneyFromDecimal rounds d half away from zero to cents. Values whose cents
// would overflow int64 are rejected with ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.GreaterThan(maxMoney) || d.LessThan(minMoney) {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// ParseMoney reads a signed decimal string such as "12.34", "-5" or "12,34".
// Positivity is left to Validate since wallet balances may be negative.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// MarshalJSON emits a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
