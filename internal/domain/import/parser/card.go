package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	maskedCardPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[*xX•]{2,}\s?\d{4}`),
		regexp.MustCompile(`\d{4,6}\s?[*xX•]+\s?\d{4}`),
		regexp.MustCompile(`\d{4}\s[*xX•]{4}\s[*xX•]{4}\s\d{4}`),
	}
	pureNumberRe = regexp.MustCompile(`^[\d\s.,+-]+$`)

	nullCardTokens = map[string]struct{}{
		"-": {}, "—": {}, "–": {}, "n/a": {}, "na": {}, "null": {}, "none": {},
		"nan": {}, "0": {}, "undefined": {}, "нет": {}, "немає": {},
	}
)

type bankAlias struct {
	canonical string
	aliases   []string
}

// knownBanks maps common spellings to a display name. Aliases are lower-case.
var knownBanks = []bankAlias{
	{canonical: "PrivatBank", aliases: []string{"privatbank", "privat bank", "privat24"}},
	{canonical: "ПриватБанк", aliases: []string{"приватбанк", "приват банк", "приват24"}},
	{canonical: "Monobank", aliases: []string{"monobank", "mono bank", "монобанк"}},
	{canonical: "Oschadbank", aliases: []string{"oschadbank", "ощадбанк"}},
	{canonical: "PUMB", aliases: []string{"pumb", "пумб"}},
	{canonical: "Raiffeisen", aliases: []string{"raiffeisen", "райффайзен"}},
	{canonical: "Revolut", aliases: []string{"revolut"}},
	{canonical: "Wise", aliases: []string{"transferwise", "wise"}},
	{canonical: "N26", aliases: []string{"n26"}},
	{canonical: "Millennium BCP", aliases: []string{"millennium", "millenium bcp"}},
	{canonical: "Caixa Geral", aliases: []string{"caixa geral", "cgd"}},
	{canonical: "Santander", aliases: []string{"santander"}},
	{canonical: "Sberbank", aliases: []string{"sberbank", "сбербанк"}},
	{canonical: "Tinkoff", aliases: []string{"tinkoff", "тинькофф"}},
}

// IsMaskedCard reports whether the text contains a masked card number like **** 1234
func IsMaskedCard(s string) bool {
	for _, re := range maskedCardPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeCardName turns a raw card/account cell into a display name.
// Empty, null-ish, purely numeric and very short unmasked values yield the fallback.
func NormalizeCardName(raw, fallback string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return fallback
	}
	if _, ok := nullCardTokens[strings.ToLower(s)]; ok {
		return fallback
	}
	if IsMaskedCard(s) {
		return s
	}
	if pureNumberRe.MatchString(s) || utf8.RuneCountInString(s) < 3 {
		return fallback
	}

	lower := strings.ToLower(s)
	for _, bank := range knownBanks {
		for _, alias := range bank.aliases {
			if containsWord(lower, alias) {
				return bank.canonical
			}
		}
	}
	for _, bank := range knownBanks {
		for _, alias := range bank.aliases {
			if utf8.RuneCountInString(alias) < 5 {
				continue
			}
			if rank := fuzzy.RankMatchNormalizedFold(alias, s); rank >= 0 && rank <= 2 {
				return bank.canonical
			}
		}
	}

	if isAllUpperOrLower(s) {
		return cases.Title(language.Und).String(strings.ToLower(s))
	}
	return s
}

// containsWord matches short aliases on word boundaries and long ones as substrings
func containsWord(s, word string) bool {
	if utf8.RuneCountInString(word) >= 5 {
		return strings.Contains(s, word)
	}
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		idx = end
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isAllUpperOrLower(s string) bool {
	return s == strings.ToUpper(s) || s == strings.ToLower(s)
}
