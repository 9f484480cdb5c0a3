package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCardName(t *testing.T) {
	const fallback = "Main card"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", fallback},
		{"null token", "n/a", fallback},
		{"dash", "—", fallback},
		{"pure number", "12345678", fallback},
		{"too short", "ab", fallback},
		{"masked with stars", "**** 1234", "**** 1234"},
		{"masked inside", "5168****1234", "5168****1234"},
		{"masked with label", "Visa *1234 xx5678", "Visa *1234 xx5678"},
		{"cyrillic bank", "ПриватБанк Універсальна", "ПриватБанк"},
		{"latin bank upper case", "PRIVATBANK GOLD", "PrivatBank"},
		{"bank with typo separator", "Privat-Bank", "PrivatBank"},
		{"monobank", "monobank black", "Monobank"},
		{"upper case product", "VISA GOLD", "Visa Gold"},
		{"mixed case kept", "Mastercard Black", "Mastercard Black"},
		{"whitespace collapsed", "  My   savings  ", "My savings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCardName(tt.raw, fallback))
		})
	}
}

func TestIsMaskedCard(t *testing.T) {
	assert.True(t, IsMaskedCard("**1234"))
	assert.True(t, IsMaskedCard("4149 **** **** 0001"))
	assert.True(t, IsMaskedCard("XX 9876"))
	assert.False(t, IsMaskedCard("Card 1234"))
	assert.False(t, IsMaskedCard("*1"))
}
