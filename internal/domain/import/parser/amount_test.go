package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"european thousands and decimal comma", TextCell("1.234,56"), "1234.56"},
		{"us thousands", TextCell("$1,234.56"), "1234.56"},
		{"parentheses mean negative", TextCell("(45.00)"), "-45"},
		{"leading minus with currency suffix", TextCell("-1 234,50 ₴"), "-1234.5"},
		{"trailing minus", TextCell("100-"), "-100"},
		{"unicode minus", TextCell("−45,00"), "-45"},
		{"explicit plus", TextCell("+500"), "500"},
		{"comma as thousands", TextCell("1,234"), "1234"},
		{"comma as decimal", TextCell("1234,56"), "1234.56"},
		{"one digit after comma is grouping", TextCell("12,5"), "125"},
		{"four digits then comma digit", TextCell("1234,5"), "12345"},
		{"abbreviated hryvnia suffix", TextCell("1 234,56 грн."), "1234.56"},
		{"negative with abbreviated suffix", TextCell("-99,90 грн."), "-99.9"},
		{"abbreviated rouble suffix", TextCell("12,50 руб."), "12.5"},
		{"abbreviated prefix", TextCell("руб. 1234"), "1234"},
		{"leading decimal dot", TextCell(".50"), "0.5"},
		{"several dots are thousands", TextCell("1.234.567"), "1234567"},
		{"apostrophe grouping", TextCell("1'234.50"), "1234.5"},
		{"nbsp grouping", TextCell("12 500,00 грн"), "12500"},
		{"iso code prefix", TextCell("UAH 99.90"), "99.9"},
		{"numeric cell", NumberCell(-12.34), "-12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.cell)
			require.NoError(t, err)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

func TestParseAmountWith_DecimalComma(t *testing.T) {
	opts := AmountOptions{DecimalComma: true}
	tests := []struct {
		raw  string
		want string
	}{
		{"12,5", "12.5"},
		{"1234,5", "1234.5"},
		{"1.234", "1234"},
		{"1.234,5 грн.", "1234.5"},
		{"12.50", "12.5"},
		{"1 000", "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmountWith(TextCell(tt.raw), opts)
			require.NoError(t, err)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

func TestAmountDigits(t *testing.T) {
	assert.Equal(t, "1234,56", AmountDigits("1 234,56 грн."))
	assert.Equal(t, "1234.50", AmountDigits("1'234.50 CHF"))
	assert.Equal(t, "4,50", AmountDigits("-4,50"))
	assert.Equal(t, "", AmountDigits("р."))
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "-", "1-2", "()", "1,2,3.4.5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(TextCell(raw))
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		raw  string
		want Direction
	}{
		{"+100.00", DirectionIncome},
		{"-100.00", DirectionExpense},
		{"100.00-", DirectionExpense},
		{"(45.00)", DirectionExpense},
		{"45.00 CR", DirectionIncome},
		{"45.00 DR", DirectionExpense},
		{"Debit 12.00", DirectionExpense},
		{"зарахування 500", DirectionIncome},
		{"списання 200", DirectionExpense},
		{"100.00", DirectionUnknown},
		{"", DirectionUnknown},
		{"Address 12", DirectionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDirection(tt.raw))
		})
	}
}
