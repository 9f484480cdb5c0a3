// Package currency detects the currency of a statement and keeps the table of
// known currencies with their symbols and minor-unit fractions.
package currency

import (
	"sort"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
)

const defaultFraction = 2

// Currency describes one currency known to a Registry
type Currency struct {
	Code     string   // ISO 4217 code, upper-case
	Symbol   string   // display symbol, may equal Code
	Name     string   // English name
	Names    []string // localized names and abbreviations, lower-case
	Fraction int      // digits in the minor unit
}

// Registry is a concurrency-safe table of currencies. It is injected into
// detectors rather than shared globally, so each caller controls what it knows.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]Currency
	order  []string
}

// NewRegistry creates a registry seeded with the given currencies
func NewRegistry(seed ...Currency) *Registry {
	r := &Registry{byCode: make(map[string]Currency, len(seed))}
	for _, c := range seed {
		r.Add(c)
	}
	return r
}

// DefaultRegistry returns a registry with the currencies most statements use
func DefaultRegistry() *Registry {
	return NewRegistry(
		Currency{Code: "UAH", Symbol: "₴", Name: "Ukrainian hryvnia", Names: []string{"грн", "гривня", "гривні", "гривень", "гривна", "hryvnia"}},
		Currency{Code: "USD", Symbol: "$", Name: "US dollar", Names: []string{"долар", "доллар", "dollar", "dólar"}},
		Currency{Code: "EUR", Symbol: "€", Name: "Euro", Names: []string{"євро", "евро", "euro"}},
		Currency{Code: "GBP", Symbol: "£", Name: "Pound sterling", Names: []string{"фунт", "pound sterling"}},
		Currency{Code: "PLN", Symbol: "zł", Name: "Polish zloty", Names: []string{"злотий", "злотый", "zloty", "złoty"}},
		Currency{Code: "RUB", Symbol: "₽", Name: "Russian ruble", Names: []string{"руб", "рубль", "рублей"}},
		Currency{Code: "CHF", Symbol: "CHF", Name: "Swiss franc", Names: []string{"франк", "franken"}},
		Currency{Code: "CZK", Symbol: "Kč", Name: "Czech koruna", Names: []string{"крона", "koruna"}},
		Currency{Code: "BRL", Symbol: "R$", Name: "Brazilian real", Names: []string{"real brasileiro", "reais"}},
		Currency{Code: "JPY", Symbol: "¥", Name: "Japanese yen", Names: []string{"єна", "иена", "yen"}},
	)
}

// Add registers or replaces a currency. A missing fraction or symbol is filled
// from the ISO catalog.
func (r *Registry) Add(c Currency) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return
	}
	if catalog := money.GetCurrency(c.Code); catalog != nil {
		if c.Fraction == 0 {
			c.Fraction = catalog.Fraction
		}
		if c.Symbol == "" {
			c.Symbol = catalog.Grapheme
		}
	} else if c.Fraction == 0 {
		c.Fraction = defaultFraction
	}
	if c.Symbol == "" {
		c.Symbol = c.Code
	}
	names := make([]string, len(c.Names))
	for i, n := range c.Names {
		names[i] = strings.ToLower(n)
	}
	c.Names = names

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[c.Code]; !exists {
		r.order = append(r.order, c.Code)
	}
	r.byCode[c.Code] = c
}

// Lookup finds a currency by ISO code
func (r *Registry) Lookup(code string) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// LookupSymbol finds the first currency registered with the symbol
func (r *Registry) LookupSymbol(symbol string) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, code := range r.order {
		if c := r.byCode[code]; c.Symbol == symbol {
			return c, true
		}
	}
	return Currency{}, false
}

// LookupName finds a currency by one of its localized names
func (r *Registry) LookupName(name string) (Currency, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, code := range r.order {
		c := r.byCode[code]
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
		for _, n := range c.Names {
			if n == name {
				return c, true
			}
		}
	}
	return Currency{}, false
}

// All returns the registered currencies in registration order
func (r *Registry) All() []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}

// Codes returns the registered codes sorted alphabetically
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Fraction returns the minor-unit digits for a code, falling back to the ISO
// catalog and then to two digits.
func (r *Registry) Fraction(code string) int {
	if c, ok := r.Lookup(code); ok {
		return c.Fraction
	}
	if catalog := money.GetCurrency(strings.ToUpper(code)); catalog != nil {
		return catalog.Fraction
	}
	return defaultFraction
}
