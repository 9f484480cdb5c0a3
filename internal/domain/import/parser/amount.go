package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Direction is the money flow indicated by an amount cell
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionIncome
	DirectionExpense
)

func (d Direction) String() string {
	switch d {
	case DirectionIncome:
		return "income"
	case DirectionExpense:
		return "expense"
	default:
		return "unknown"
	}
}

var (
	incomeTokenRe  = regexp.MustCompile(`(?i)(^|[^\p{L}])(cr|credit|кредит|зарахування|надходження|поступление|зачисление|crédito|credito|haben)([^\p{L}]|$)`)
	expenseTokenRe = regexp.MustCompile(`(?i)(^|[^\p{L}])(dr|debit|дебет|списання|списание|débito|debito|soll)([^\p{L}]|$)`)
)

// AmountOptions carries column-level knowledge about separators
type AmountOptions struct {
	// DecimalComma marks a column known to use ',' as the decimal separator.
	// Comma-only values are then always decimal and a lone dot followed by
	// three digits is a thousands group.
	DecimalComma bool
}

// ParseAmount converts a cell into a signed decimal.
// Currency symbols, letters, spaces and apostrophes are ignored; a leading or
// trailing minus or surrounding parentheses make the value negative.
func ParseAmount(c Cell) (decimal.Decimal, error) {
	return ParseAmountWith(c, AmountOptions{})
}

// ParseAmountWith is ParseAmount with separators settled by opts
func ParseAmountWith(c Cell, opts AmountOptions) (decimal.Decimal, error) {
	if c.Numeric {
		return decimal.NewFromFloat(c.Number), nil
	}

	raw := strings.TrimSpace(c.Text)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	s := stripAmount(raw)
	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	if s == "" || strings.ContainsAny(s, "+-()") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	normalized, err := normalizeSeparators(s, opts)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// stripAmount keeps digits, signs, parentheses and the separators that sit
// between two digits. A dot closing a currency abbreviation ("грн.") is dropped.
func stripAmount(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case isDigit(r), r == '+', r == '(', r == ')':
			b.WriteRune(r)
		case r == '.' || r == ',':
			if separatesDigits(runes, i) {
				b.WriteRune(r)
			}
		case r == '-', r == '−', r == '–':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// AmountDigits returns the digits of an amount text with the separators that
// sit between digits, e.g. "1 234,56 грн." becomes "1234,56".
func AmountDigits(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if isDigit(r) || ((r == '.' || r == ',') && separatesDigits(runes, i)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// separatesDigits reports whether runes[i] is followed by a digit and preceded
// by a digit, a sign or nothing (".50"). Spaces and apostrophes are skipped.
func separatesDigits(runes []rune, i int) bool {
	before, after := true, false
	for j := i - 1; j >= 0; j-- {
		if isGrouping(runes[j]) {
			continue
		}
		before = isDigit(runes[j]) || strings.ContainsRune("+-−–(", runes[j])
		break
	}
	for j := i + 1; j < len(runes); j++ {
		if isGrouping(runes[j]) {
			continue
		}
		after = isDigit(runes[j])
		break
	}
	return before && after
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isGrouping(r rune) bool {
	return r == ' ' || r == '\u00a0' || r == '\u202f' || r == '\''
}

// normalizeSeparators rewrites grouping and decimal separators into a plain
// decimal string. Without column knowledge a lone comma is decimal only when
// exactly two digits follow it.
func normalizeSeparators(s string, opts AmountOptions) (string, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		commas := strings.Count(s, ",")
		decimals := len(s) - lastComma - 1
		if commas == 1 && (decimals == 2 || opts.DecimalComma) {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case lastDot >= 0 && opts.DecimalComma && len(s)-lastDot-1 == 3:
		s = strings.Replace(s, ".", "", 1)
	}

	if strings.Count(s, ".") > 1 || strings.Contains(s, ",") || s == "." {
		return "", ErrInvalidAmount
	}
	return s, nil
}

// DetectDirection infers income or expense from explicit markers in the raw amount text
func DetectDirection(raw string) Direction {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DirectionUnknown
	}

	switch {
	case strings.HasPrefix(s, "+"):
		return DirectionIncome
	case strings.HasPrefix(s, "-"), strings.HasPrefix(s, "−"), strings.HasSuffix(s, "-"):
		return DirectionExpense
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return DirectionExpense
	}

	if expenseTokenRe.MatchString(s) {
		return DirectionExpense
	}
	if incomeTokenRe.MatchString(s) {
		return DirectionIncome
	}
	return DirectionUnknown
}
