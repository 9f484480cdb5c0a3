package sniffer

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// DefaultHeaderScanRows is how many leading rows are searched for a header
const DefaultHeaderScanRows = 20

var ErrNoColumnsDetected = errors.New("could not detect statement columns")

var (
	titleRe = regexp.MustCompile(`(?i)^\s*(?:` + strings.Join([]string{
		`(?:bank\s+|account\s+|card\s+)?statement`, `transaction\s+history`, `account\s+activity`,
		`(?:банківська\s+)?виписка`, `звіт\s+по`, `історія\s+операцій`,
		`(?:банковская\s+)?выписка`, `отчет\s+по`, `история\s+операций`,
		`extrato`, `movimentos\s+da\s+conta`,
		`extracto`, `estado\s+de\s+cuenta`, `movimientos\s+de\s+la\s+cuenta`,
		`kontoauszug`, `umsatzanzeige`, `umsätze`,
	}, "|") + `)(?:[^\p{L}]|$)`)

	metadataRes = []*regexp.Regexp{
		titleRe,
		regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:period|період|период|período|periodo|zeitraum)(?:[^\p{L}]|$)`),
		regexp.MustCompile(`(?i)^\s*(?:from|з|с|de|desde|von)\s+\d{1,4}[./-]\d{1,2}[./-]\d{1,4}\s+(?:to|по|до|a|até|hasta|bis)\s+\d{1,4}[./-]\d{1,2}[./-]\d{1,4}`),
		regexp.MustCompile(`(?i)^\s*(?:client|customer|account\s+holder|name|клієнт|власник|піб|клиент|владелец|фио|cliente|titular|kunde|kontoinhaber)\s*[:№#-]`),
		regexp.MustCompile(`(?i)^\s*(?:account|iban|рахунок|счет|счёт|conta|cuenta|konto)\s*[:№#]`),
		regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:(?:opening|closing|start|end|available|вхідний|вихідний|початковий|кінцевий|входящий|исходящий|начальный|конечный)\s+(?:balance|залишок|остаток|saldo)|saldo\s+(?:inicial|final|disponível)|anfangssaldo|endsaldo|(?:balance|залишок|остаток)\s*:)`),
		regexp.MustCompile(`(?i)(?:generated|printed|created\s+on|сформовано|згенеровано|сформирован|gerado\s+em|generado|erstellt\s+am)`),
	}
)

// HeaderResult describes the located header row
type HeaderResult struct {
	Index     int      // zero-based row index in the scanned rows
	RawLabels []string // labels as they appear in the file
	Labels    []string // labels after CleanHeaderLabels
	Fallback  bool     // true when no row matched the keyword families
}

// LocateHeader walks the first maxScan rows top-down, skips document metadata
// and returns the first row that looks like a column header.
func LocateHeader(rows [][]string, maxScan int) (*HeaderResult, error) {
	if maxScan <= 0 {
		maxScan = DefaultHeaderScanRows
	}
	if len(rows) < maxScan {
		maxScan = len(rows)
	}

	fallback := -1
	for i := 0; i < maxScan; i++ {
		row := rows[i]
		filled := nonEmptyCount(row)
		if filled == 0 || isMetadataRow(row, filled) {
			continue
		}

		if filled >= 2 && keywordFamilies(row) >= 2 {
			return newHeaderResult(row, i, false), nil
		}
		if fallback < 0 && filled >= 3 {
			fallback = i
		}
	}

	if fallback >= 0 {
		return newHeaderResult(rows[fallback], fallback, true), nil
	}
	return nil, ErrNoColumnsDetected
}

func newHeaderResult(row []string, idx int, fallback bool) *HeaderResult {
	raw := make([]string, len(row))
	for i, c := range row {
		raw[i] = strings.TrimSpace(c)
	}
	return &HeaderResult{
		Index:     idx,
		RawLabels: raw,
		Labels:    CleanHeaderLabels(raw),
		Fallback:  fallback,
	}
}

// IsMetadataRow reports whether the row is a statement banner rather than a header or data
func IsMetadataRow(row []string) bool {
	return isMetadataRow(row, nonEmptyCount(row))
}

func isMetadataRow(row []string, filled int) bool {
	first := ""
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			first = c
			break
		}
	}
	if first != "" && titleRe.MatchString(first) && !namesField(first) {
		return true
	}
	if filled > 2 {
		return false
	}

	for _, c := range row {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if parser.IsMaskedCard(c) && utf8.RuneCountInString(c) > 8 && filled == 1 {
			return true
		}
		for _, re := range metadataRes {
			if re.MatchString(c) {
				return true
			}
		}
	}
	return false
}

func namesField(label string) bool {
	for _, f := range Fields {
		if Score(label, f) > Threshold(f) {
			return true
		}
	}
	return false
}

// keywordFamilies counts how many of date, amount and description the row's cells name
func keywordFamilies(row []string) int {
	hits := 0
	for _, f := range []Field{FieldDate, FieldAmount, FieldDescription} {
		for _, c := range row {
			if Score(c, f) > Threshold(f) {
				hits++
				break
			}
		}
	}
	return hits
}

// CleanHeaderLabels blanks labels that are really document text and shortens
// sentence-like labels to the keyword they contain.
func CleanHeaderLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		l := strings.TrimSpace(label)
		switch {
		case utf8.RuneCountInString(l) > 60, titleRe.MatchString(l) && !namesField(l):
			l = ""
		case len(strings.Fields(l)) > 5:
			if token := fullWeightToken(l); token != "" {
				l = capitalize(token)
			}
		}
		out[i] = l
	}
	return out
}

// fullWeightToken returns the longest weight-1.0 keyword embedded in the label
func fullWeightToken(label string) string {
	lower := normalizeLabel(label)
	best := ""
	for _, f := range Fields {
		for _, kw := range fieldKeywords[f] {
			if kw.weight < 1.0 || len(kw.token) <= len(best) {
				continue
			}
			if containsToken(lower, kw.token) {
				best = kw.token
			}
		}
	}
	return best
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func nonEmptyCount(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
