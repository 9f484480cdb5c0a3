package currency

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
)

// DefaultCode is used when nothing in a statement names a currency
const DefaultCode = "USD"

// codes that collide with ordinary upper-case words in statements
var ambiguousCodes = map[string]struct{}{
	"ALL": {}, "TOP": {}, "CUP": {}, "MOP": {}, "BOB": {}, "SOS": {}, "PEN": {}, "MAD": {}, "NAD": {},
}

// localeKeywords point to a currency when a statement only names its bank or country
var localeKeywords = map[string][]string{
	"UAH": {
		"приват", "privatbank", "privat24", "monobank", "монобанк", "ощадбанк", "oschadbank",
		"пумб", "pumb", "грн", "гривн", "україна", "ukraine", "київ", "kyiv",
	},
}

// Detector picks the currency of a statement
type Detector struct {
	registry    *Registry
	defaultCode string
	logger      *slog.Logger
}

// NewDetector creates a detector backed by the registry. New ISO codes seen in
// statements are added to that registry.
func NewDetector(registry *Registry, defaultCode string, logger *slog.Logger) *Detector {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if defaultCode == "" {
		defaultCode = DefaultCode
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		registry:    registry,
		defaultCode: strings.ToUpper(defaultCode),
		logger:      logger,
	}
}

// Registry returns the registry the detector resolves against
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect returns the ISO code for a statement given its text and file name
func (d *Detector) Detect(text, fileName string) string {
	if code := d.scanTokens(text); code != "" {
		return code
	}
	if code := d.scanTokens(strings.ToUpper(fileName)); code != "" {
		return code
	}
	if code := d.scanRegistry(text); code != "" {
		return code
	}
	if code := scanLocale(text + " " + fileName); code != "" {
		return code
	}
	return d.defaultCode
}

// scanTokens counts three-letter ISO codes and registry symbols; the most frequent
// code wins and ties go to the earliest one.
func (d *Detector) scanTokens(text string) string {
	if text == "" {
		return ""
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if !isCodeShaped(word) {
			continue
		}
		if _, skip := ambiguousCodes[word]; skip {
			continue
		}
		if !d.knownCode(word) {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	best := ""
	for _, code := range order {
		if best == "" || counts[code] > counts[best] {
			best = code
		}
	}
	if best != "" {
		return best
	}

	return d.scanSymbols(text)
}

// knownCode reports whether the code is registered or in the ISO catalog,
// registering catalog codes on first sight.
func (d *Detector) knownCode(code string) bool {
	if _, ok := d.registry.Lookup(code); ok {
		return true
	}
	catalog := money.GetCurrency(code)
	if catalog == nil {
		return false
	}
	d.registry.Add(Currency{Code: catalog.Code, Symbol: catalog.Grapheme, Fraction: catalog.Fraction})
	d.logger.Debug("registered currency from statement", slog.String("code", catalog.Code))
	return true
}

// scanSymbols finds registry symbols by frequency; the bare dollar sign only counts
// when no more specific symbol is present.
func (d *Detector) scanSymbols(text string) string {
	best, bestCount := "", 0
	dollar := ""
	for _, c := range d.registry.All() {
		if c.Symbol == "" || c.Symbol == c.Code {
			continue
		}
		if c.Symbol == "$" {
			if dollar == "" {
				dollar = c.Code
			}
			continue
		}
		if n := strings.Count(text, c.Symbol); n > bestCount {
			best, bestCount = c.Code, n
		}
	}
	if best != "" {
		return best
	}
	if dollar != "" && strings.Contains(text, "$") {
		return dollar
	}
	return ""
}

// scanRegistry looks for codes glued to other text, then symbols, then names
func (d *Detector) scanRegistry(text string) string {
	if text == "" {
		return ""
	}
	upper := strings.ToUpper(text)
	lower := strings.ToLower(text)
	all := d.registry.All()

	for _, c := range all {
		if strings.Contains(upper, c.Code) {
			return c.Code
		}
	}
	for _, c := range all {
		if c.Symbol != c.Code && c.Symbol != "" && strings.Contains(text, c.Symbol) {
			return c.Code
		}
	}
	for _, c := range all {
		if c.Name != "" && strings.Contains(lower, strings.ToLower(c.Name)) {
			return c.Code
		}
		for _, n := range c.Names {
			if strings.Contains(lower, n) {
				return c.Code
			}
		}
	}
	return ""
}

func scanLocale(text string) string {
	lower := strings.ToLower(text)
	for code, keywords := range localeKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return code
			}
		}
	}
	return ""
}

func isCodeShaped(word string) bool {
	if len(word) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if word[i] < 'A' || word[i] > 'Z' {
			return false
		}
	}
	return true
}
