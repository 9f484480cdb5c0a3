package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// transaction-code prefixes banks put in front of the merchant
	descriptionPrefixRe = regexp.MustCompile(`(?i)^(?:` + strings.Join([]string{
		`card\s+purchase`, `card\s+payment`, `pos\s+purchase`, `purchase`, `payment\s+to`, `payment`,
		`pos`, `atm`, `transfer\s+to`, `transfer\s+from`, `transfer`, `trf`, `sepa(?:\s+dd|\s+ct)?`,
		`direct\s+debit`, `compras?`, `pagamento`, `pag`, `transf(?:erencia)?`, `mb\s?way`,
		`оплата`, `покупка`, `переказ(?:\s+на\s+картку)?`, `перевод`, `банкомат`, `зняття\s+готівки`,
		`снятие\s+наличных`, `kartenzahlung`, `lastschrift`, `überweisung`,
	}, "|") + `)(?:[\s:#*/\-]+|$)`)

	trailingDateRe  = regexp.MustCompile(`[\s,]+\d{1,4}[./-]\d{1,2}(?:[./-]\d{2,4})?(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?$`)
	referenceRe     = regexp.MustCompile(`(?i)[\s,;]+(?:ref|reference|auth|authcode|rrn|id|txn|№|no\.?)[\s.:#№]*[\w-]*\d[\w-]*$`)
	longDigitsRe    = regexp.MustCompile(`[\s#*]+\d{6,}$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	commentDividers = "|;:"
)

// CleanDescription strips bank noise from a raw description and normalizes its casing.
// When cleaning would remove everything, the trimmed original is returned.
func CleanDescription(raw string) string {
	original := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	if original == "" {
		return ""
	}

	result := original
	for i := 0; i < 2; i++ {
		stripped := descriptionPrefixRe.ReplaceAllString(result, "")
		if stripped == result {
			break
		}
		result = strings.TrimSpace(stripped)
	}

	for {
		before := result
		result = trailingDateRe.ReplaceAllString(result, "")
		result = referenceRe.ReplaceAllString(result, "")
		result = longDigitsRe.ReplaceAllString(result, "")
		result = strings.TrimRight(strings.TrimSpace(result), ",;-/")
		if result == before {
			break
		}
	}

	result = strings.TrimSpace(whitespaceRe.ReplaceAllString(result, " "))
	if result == "" {
		return original
	}

	if isShouting(result) {
		result = strings.ToLower(result)
	}
	return capitalizeSentences(result)
}

// SplitComment splits a raw description on the first '|', ';' or ':'.
// The comment is kept only when both halves are present and differ.
func SplitComment(raw string) (description, comment string) {
	s := strings.TrimSpace(raw)
	idx := commentDivider(s)
	if idx < 0 {
		return s, ""
	}

	desc := strings.TrimSpace(s[:idx])
	rest := strings.TrimSpace(s[idx+1:])
	if desc == "" || rest == "" || strings.EqualFold(desc, rest) {
		return s, ""
	}
	return desc, rest
}

// commentDivider finds the first divider, ignoring colons inside times like 12:30
func commentDivider(s string) int {
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(commentDividers, rune(s[i])) {
			continue
		}
		if s[i] == ':' && i > 0 && i+1 < len(s) && isASCIIDigit(s[i-1]) && isASCIIDigit(s[i+1]) {
			continue
		}
		return i
	}
	return -1
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// isShouting reports whether every letter in s is upper case
func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters > 1
}

// capitalizeSentences upper-cases the first letter of the text and of every sentence
func capitalizeSentences(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	capNext := true
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if capNext && unicode.IsLetter(r) {
			r = unicode.ToUpper(r)
			capNext = false
		} else if capNext && unicode.IsDigit(r) {
			capNext = false
		}
		if r == '.' || r == '!' || r == '?' {
			if len(s) == 0 || s[0] == ' ' {
				capNext = true
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
