// Package money converts parsed decimal amounts to integer minor units and formats
// them with their ISO-4217 currency.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	UAH = "UAH"
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	JPY = "JPY" // no minor unit
)

const defaultFraction = 2

// ErrOutOfRange is returned for amounts that do not fit in int64 minor units
var ErrOutOfRange = errors.New("amount out of range")

var (
	minMinor = decimal.NewFromInt(math.MinInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Money is an amount in minor units of a currency
type Money struct {
	m *money.Money
}

// New creates Money from minor units and a currency code
func New(minor int64, currencyCode string) *Money {
	return &Money{m: money.New(minor, currencyCode)}
}

// Fraction returns the number of minor-unit digits for a code, two when the
// code is not in the ISO catalog.
func Fraction(currencyCode string) int {
	if c := money.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return defaultFraction
}

// MinorUnits scales a decimal amount by 10^fraction, rounding half away from zero.
// Amounts outside the int64 range fail with ErrOutOfRange.
func MinorUnits(amount decimal.Decimal, fraction int) (int64, error) {
	shifted := amount.Shift(int32(fraction)).Round(0)
	if shifted.LessThan(minMinor) || shifted.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, amount)
	}
	return shifted.IntPart(), nil
}

// NewFromDecimal creates Money from a decimal amount using the catalog fraction
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	minor, err := MinorUnits(amount, Fraction(currencyCode))
	if err != nil {
		return nil, err
	}
	return New(minor, currencyCode), nil
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsNegative returns true if the amount is below zero
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return &Money{}
	}
	return &Money{m: m.m.Absolute()}
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("cannot add %s to %s: %w", other.Currency(), m.Currency(), err)
	}
	return &Money{m: result}, nil
}

// Display formats the amount with its symbol, e.g. "$1,234.56". Codes unknown to
// the catalog are shown as "1234.56 XYZ".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	if money.GetCurrency(m.Currency()) == nil {
		return m.String() + " " + m.Currency()
	}
	return m.m.Display()
}

// String returns the amount as a decimal string, e.g. "1234.56"
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(Fraction(m.Currency())))
}

// ToDecimal converts minor units back to a decimal amount
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(Fraction(m.Currency())))
}

// MarshalJSON writes amount, currency and display
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

// Totals accumulates income and expense sums per currency
type Totals struct {
	Income   map[string]*Money
	Expenses map[string]*Money
}

// NewTotals creates empty totals
func NewTotals() *Totals {
	return &Totals{Income: make(map[string]*Money), Expenses: make(map[string]*Money)}
}

// Add records a signed minor-unit amount
func (t *Totals) Add(minor int64, currencyCode string) error {
	bucket := t.Expenses
	if minor > 0 {
		bucket = t.Income
	}
	sum, err := bucket[currencyCode].Add(New(minor, currencyCode))
	if err != nil {
		return err
	}
	bucket[currencyCode] = sum
	return nil
}
