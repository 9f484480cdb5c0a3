package sniffer

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

var ErrRequiredColumnsMissing = errors.New("required columns not detected")

var (
	parenthesizedRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	dateShapedRe    = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:dd|mm|yyyy|yy|дд|мм|гггг|рррр)[./-]|\d{1,4}[./-]\d{1,2}[./-]\d{1,4}`)
	currencyMarkRe  = regexp.MustCompile(`(?i)[₴$€£₽¥]|zł|(?:^|[^\p{L}])(?:uah|usd|eur|gbp|pln|rub|chf|czk|brl|грн|руб)(?:[^\p{L}]|$)`)
	labelSpaceRe    = regexp.MustCompile(`\s+`)
)

// ColumnAnalysis holds the per-field scores of one column label
type ColumnAnalysis struct {
	Index            int
	RawLabel         string
	DateScore        float64
	AmountScore      float64
	DescriptionScore float64
	CardScore        float64
	CategoryScore    float64
	CommentScore     float64
}

// ScoreFor returns the score of the given field
func (a ColumnAnalysis) ScoreFor(f Field) float64 {
	switch f {
	case FieldDate:
		return a.DateScore
	case FieldAmount:
		return a.AmountScore
	case FieldDescription:
		return a.DescriptionScore
	case FieldCard:
		return a.CardScore
	case FieldCategory:
		return a.CategoryScore
	case FieldComment:
		return a.CommentScore
	default:
		return 0
	}
}

// Assignment maps fields to column indices; -1 means not detected
type Assignment struct {
	Date        int
	Amount      int
	Description int
	Card        int
	Category    int
	Comment     int
}

func newAssignment() Assignment {
	return Assignment{Date: -1, Amount: -1, Description: -1, Card: -1, Category: -1, Comment: -1}
}

// Column returns the index assigned to a field
func (a Assignment) Column(f Field) int {
	switch f {
	case FieldDate:
		return a.Date
	case FieldAmount:
		return a.Amount
	case FieldDescription:
		return a.Description
	case FieldCard:
		return a.Card
	case FieldCategory:
		return a.Category
	case FieldComment:
		return a.Comment
	default:
		return -1
	}
}

func (a *Assignment) set(f Field, idx int) {
	switch f {
	case FieldDate:
		a.Date = idx
	case FieldAmount:
		a.Amount = idx
	case FieldDescription:
		a.Description = idx
	case FieldCard:
		a.Card = idx
	case FieldCategory:
		a.Category = idx
	case FieldComment:
		a.Comment = idx
	}
}

// Score rates how likely a header label names the given field, in [0,1]
func Score(label string, f Field) float64 {
	lower := normalizeLabel(label)
	if lower == "" {
		return 0
	}
	core := strings.TrimSpace(labelSpaceRe.ReplaceAllString(parenthesizedRe.ReplaceAllString(lower, " "), " "))

	score := 0.0
	for _, kw := range fieldKeywords[f] {
		var s float64
		switch {
		case core == kw.token || lower == kw.token:
			s = kw.weight
		case containsToken(lower, kw.token):
			s = 0.8 * kw.weight
		}
		if s > score {
			score = s
		}
	}

	switch f {
	case FieldDate:
		if dateShapedRe.MatchString(lower) {
			score += 0.1
		}
	case FieldAmount:
		if currencyMarkRe.MatchString(lower) {
			score += 0.15
		}
	case FieldCard:
		if parser.IsMaskedCard(label) {
			score += 0.3
		}
	}

	for _, ex := range fieldExclusions[f] {
		if strings.Contains(lower, ex) {
			score *= 0.1
			break
		}
	}

	return clamp(score)
}

// Analyze scores every label against every field
func Analyze(labels []string) []ColumnAnalysis {
	out := make([]ColumnAnalysis, len(labels))
	for i, label := range labels {
		out[i] = ColumnAnalysis{
			Index:            i,
			RawLabel:         label,
			DateScore:        Score(label, FieldDate),
			AmountScore:      Score(label, FieldAmount),
			DescriptionScore: Score(label, FieldDescription),
			CardScore:        Score(label, FieldCard),
			CategoryScore:    Score(label, FieldCategory),
			CommentScore:     Score(label, FieldComment),
		}
	}
	return out
}

// Classify assigns each field the best scoring free column above its threshold.
// Fields are processed in order, so date wins a column over amount, and so on.
func Classify(labels []string) (Assignment, []ColumnAnalysis, error) {
	analyses := Analyze(labels)
	assignment := newAssignment()
	taken := make(map[int]bool, len(labels))

	for _, f := range Fields {
		order := make([]ColumnAnalysis, len(analyses))
		copy(order, analyses)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].ScoreFor(f) > order[j].ScoreFor(f)
		})

		for _, a := range order {
			if taken[a.Index] {
				continue
			}
			if a.ScoreFor(f) <= Threshold(f) {
				break
			}
			assignment.set(f, a.Index)
			taken[a.Index] = true
			break
		}
	}

	var missing []string
	if assignment.Date < 0 {
		missing = append(missing, FieldDate.String())
	}
	if assignment.Amount < 0 {
		missing = append(missing, FieldAmount.String())
	}
	if len(missing) > 0 {
		return assignment, analyses, fmt.Errorf("%w: %s", ErrRequiredColumnsMissing, strings.Join(missing, ", "))
	}
	return assignment, analyses, nil
}

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Trim(s, ":*#№ \t")
	return labelSpaceRe.ReplaceAllString(s, " ")
}

// containsToken matches short tokens on word boundaries and longer ones as substrings
func containsToken(s, token string) bool {
	if utf8.RuneCountInString(token) >= 4 {
		return strings.Contains(s, token)
	}
	start := 0
	for {
		i := strings.Index(s[start:], token)
		if i < 0 {
			return false
		}
		from := start + i
		to := from + len(token)
		before, _ := utf8.DecodeLastRuneInString(s[:from])
		after, _ := utf8.DecodeRuneInString(s[to:])
		if (from == 0 || !isWordRune(before)) && (to == len(s) || !isWordRune(after)) {
			return true
		}
		start = to
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
