package sniffer

import (
	"strings"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// RegionalDialect represents inferred regional formatting for amounts and dates
type RegionalDialect struct {
	DecimalSeparator rune    // '.' (US) or ',' (EU)
	DateFormat       string  // parser.HintDayFirst or parser.HintMonthFirst
	Confidence       float64 // 0.0-1.0 share of amount hints behind DecimalSeparator
	AmountHints      int     // amount samples that showed a separator convention
}

// minSeparatorConfidence is the share of agreeing amount samples needed before a
// column's decimal separator is trusted over the per-cell rule
const minSeparatorConfidence = 0.8

// ProbeDialect analyzes sample rows to infer the regional "dialect" of the file.
// It examines amount columns for decimal separators and date columns for day/month order.
func ProbeDialect(sampleRows [][]string, amountIdx int, dateIdx int) *RegionalDialect {
	dialect := &RegionalDialect{
		DecimalSeparator: '.',
		DateFormat:       parser.HintDayFirst,
		Confidence:       0.5,
	}

	europeanHints := 0
	usHints := 0
	dayFirst := 0
	monthFirst := 0

	for _, row := range sampleRows {
		if amountIdx >= 0 && amountIdx < len(row) {
			switch hint := analyzeAmountFormat(row[amountIdx]); {
			case hint > 0:
				europeanHints++
			case hint < 0:
				usHints++
			}
		}

		if dateIdx >= 0 && dateIdx < len(row) {
			switch analyzeDateFormat(row[dateIdx]) {
			case parser.HintDayFirst:
				dayFirst++
			case parser.HintMonthFirst:
				monthFirst++
			}
		}
	}

	if europeanHints > usHints {
		dialect.DecimalSeparator = ','
	}

	totalHints := europeanHints + usHints
	dialect.AmountHints = totalHints
	if totalHints > 0 {
		winningHints := max(europeanHints, usHints)
		dialect.Confidence = float64(winningHints) / float64(totalHints)
	}

	if monthFirst > 0 && dayFirst == 0 {
		dialect.DateFormat = parser.HintMonthFirst
	}

	return dialect
}

// DetectDateFormatHint returns the day/month order suggested by sample date values
func DetectDateFormatHint(samples []string) string {
	rows := make([][]string, len(samples))
	for i, s := range samples {
		rows[i] = []string{s}
	}
	return ProbeDialect(rows, -1, 0).DateFormat
}

// DetectDecimalSeparator returns "," or "." when the sample amounts agree on a
// decimal separator, and "" when they are too few or contradict each other.
func DetectDecimalSeparator(samples []string) string {
	rows := make([][]string, len(samples))
	for i, s := range samples {
		rows[i] = []string{s}
	}
	d := ProbeDialect(rows, 0, -1)
	if d.AmountHints == 0 || d.Confidence < minSeparatorConfidence {
		return ""
	}
	return string(d.DecimalSeparator)
}

// analyzeAmountFormat returns: >0 for European, <0 for US, 0 for ambiguous
func analyzeAmountFormat(val string) int {
	cleaned := parser.AmountDigits(val)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return 1 // 1.234,56
		}
		return -1 // 1,234.56
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2 {
			return 1
		}
	case lastDot >= 0:
		if strings.Count(cleaned, ".") == 1 && len(cleaned)-lastDot-1 <= 2 {
			return -1
		}
	}
	return 0
}

// analyzeDateFormat reports which order a slash/dot/dash date proves, or "" when ambiguous
func analyzeDateFormat(dateVal string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(dateVal), func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ' '
	})
	if len(parts) < 3 || len(parts[0]) > 2 {
		return ""
	}

	first := leadingNumber(parts[0])
	second := leadingNumber(parts[1])
	switch {
	case first > 12 && first <= 31 && second >= 1 && second <= 12:
		return parser.HintDayFirst
	case second > 12 && second <= 31 && first >= 1 && first <= 12:
		return parser.HintMonthFirst
	}
	return ""
}

func leadingNumber(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
