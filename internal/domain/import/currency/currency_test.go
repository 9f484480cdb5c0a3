package currency

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	t.Run("lookup by code is case insensitive", func(t *testing.T) {
		c, ok := r.Lookup("uah")
		require.True(t, ok)
		assert.Equal(t, "₴", c.Symbol)
		assert.Equal(t, 2, c.Fraction)
	})

	t.Run("lookup by symbol and name", func(t *testing.T) {
		c, ok := r.LookupSymbol("€")
		require.True(t, ok)
		assert.Equal(t, "EUR", c.Code)

		c, ok = r.LookupName("Гривня")
		require.True(t, ok)
		assert.Equal(t, "UAH", c.Code)

		_, ok = r.LookupName("drachma")
		assert.False(t, ok)
	})

	t.Run("fractions come from the catalog", func(t *testing.T) {
		assert.Equal(t, 0, r.Fraction("JPY"))
		assert.Equal(t, 3, r.Fraction("KWD"))
		assert.Equal(t, 2, r.Fraction("XYZ"))
	})

	t.Run("add fills symbol from catalog", func(t *testing.T) {
		local := NewRegistry()
		local.Add(Currency{Code: "gel"})
		c, ok := local.Lookup("GEL")
		require.True(t, ok)
		assert.NotEmpty(t, c.Symbol)
		assert.Equal(t, 2, c.Fraction)
		assert.Equal(t, []string{"GEL"}, local.Codes())
	})

	t.Run("registries are isolated", func(t *testing.T) {
		a := NewRegistry()
		b := NewRegistry()
		a.Add(Currency{Code: "SEK"})
		_, ok := b.Lookup("SEK")
		assert.False(t, ok)
	})
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := DefaultRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Add(Currency{Code: "NOK"})
				return
			}
			r.Lookup("UAH")
			r.All()
		}(i)
	}
	wg.Wait()

	_, ok := r.Lookup("NOK")
	assert.True(t, ok)
}

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fileName string
		want     string
	}{
		{"iso code in header", "Дата Сума (UAH) Опис", "report.xlsx", "UAH"},
		{"most frequent code wins", "EUR 10\nUSD 5\nUSD 7", "", "USD"},
		{"ties go to first seen", "PLN 1\nEUR 2", "", "PLN"},
		{"symbol when no code", "Coffee 4,50 €", "", "EUR"},
		{"real before dollar", "Pagamento R$ 10,00", "", "BRL"},
		{"bare dollar", "Coffee $4.50", "", "USD"},
		{"file name", "Date Amount", "statement_eur_2024.csv", "EUR"},
		{"glued code", "Amount:100UAH", "", "UAH"},
		{"localized name", "Сума у гривнях", "", "UAH"},
		{"bank keyword", "Виписка ПриватБанк", "", "UAH"},
		{"default", "Date Amount Description", "export.csv", "GBP"},
		{"ambiguous words ignored", "ALL TOP transactions", "", "GBP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultRegistry(), "GBP", slog.Default())
			assert.Equal(t, tt.want, d.Detect(tt.text, tt.fileName))
		})
	}
}

func TestDetector_RegistersCatalogCodes(t *testing.T) {
	reg := NewRegistry()
	d := NewDetector(reg, "", nil)

	assert.Equal(t, "SEK", d.Detect("Belopp SEK 100", ""))
	c, ok := reg.Lookup("SEK")
	require.True(t, ok)
	assert.Equal(t, 2, c.Fraction)

	assert.Equal(t, DefaultCode, d.Detect("nothing here", ""))
}
