package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		fraction int
		want     int64
	}{
		{"cents", "1234.56", 2, 123456},
		{"negative", "-45.00", 2, -4500},
		{"one decimal", "12.5", 2, 1250},
		{"rounds half up", "0.125", 2, 13},
		{"rounds negative away from zero", "-0.125", 2, -13},
		{"no minor unit", "1234.5", 0, 1235},
		{"three digits", "1.2345", 3, 1235},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinorUnits(decimal.RequireFromString(tt.amount), tt.fraction)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinorUnits_OutOfRange(t *testing.T) {
	for _, amount := range []string{"123456789012345678901", "-92233720368547758.09"} {
		t.Run(amount, func(t *testing.T) {
			_, err := MinorUnits(decimal.RequireFromString(amount), 2)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}

	got, err := MinorUnits(decimal.RequireFromString("92233720368547758.07"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 2, Fraction(UAH))
	assert.Equal(t, 0, Fraction(JPY))
	assert.Equal(t, 3, Fraction("KWD"))
	assert.Equal(t, 2, Fraction("XYZ"))
}

func TestNewFromDecimal(t *testing.T) {
	m, err := NewFromDecimal(decimal.RequireFromString("-1234.56"), UAH)
	require.NoError(t, err)
	assert.Equal(t, int64(-123456), m.Amount())
	assert.Equal(t, UAH, m.Currency())
	assert.True(t, m.IsNegative())
	assert.Equal(t, int64(123456), m.Abs().Amount())

	yen, err := NewFromDecimal(decimal.RequireFromString("500"), JPY)
	require.NoError(t, err)
	assert.Equal(t, int64(500), yen.Amount())

	_, err = NewFromDecimal(decimal.RequireFromString("1e30"), EUR)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestAdd(t *testing.T) {
	sum, err := New(1000, EUR).Add(New(250, EUR))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount())

	_, err = New(1000, EUR).Add(New(250, USD))
	assert.Error(t, err)

	var empty *Money
	sum, err = empty.Add(New(5, EUR))
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.Amount())
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		contains string
	}{
		{"USD", 12345, USD, "$"},
		{"EUR", 12345, EUR, "€"},
		{"negative", -5000, USD, "-"},
		{"unknown code", 12345, "XYZ", "123.45 XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, New(tt.minor, tt.currency).Display(), tt.contains)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "123.45", New(12345, USD).String())
	assert.Equal(t, "-0.50", New(-50, UAH).String())
	assert.Equal(t, "700", New(700, JPY).String())

	expected := decimal.RequireFromString("123.45")
	assert.True(t, New(12345, USD).ToDecimal().Equal(expected))
}

func TestJSONMarshal(t *testing.T) {
	data, err := json.Marshal(New(12345, USD))
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, float64(12345), result["amount"])
	assert.Equal(t, "USD", result["currency"])
	assert.Contains(t, result["display"], "$")
}

func TestTotals(t *testing.T) {
	totals := NewTotals()
	require.NoError(t, totals.Add(-4500, EUR))
	require.NoError(t, totals.Add(-500, EUR))
	require.NoError(t, totals.Add(250000, UAH))

	assert.Equal(t, int64(-5000), totals.Expenses[EUR].Amount())
	assert.Equal(t, int64(250000), totals.Income[UAH].Amount())
	assert.Nil(t, totals.Income[EUR])
}

func TestNilSafety(t *testing.T) {
	var m *Money

	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, "", m.Currency())
	assert.True(t, m.IsZero())
	assert.False(t, m.IsNegative())
	assert.Equal(t, "0.00", m.Display())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.ToDecimal().IsZero())
	assert.Equal(t, int64(0), m.Abs().Amount())
}

func BenchmarkMinorUnits(b *testing.B) {
	d := decimal.RequireFromString("-1234.56")
	for i := 0; i < b.N; i++ {
		_, _ = MinorUnits(d, 2)
	}
}
