// Package sniffer finds the header row of a bank statement and works out which
// column holds which transaction field.
package sniffer

// Field is a transaction attribute a statement column can carry
type Field int

const (
	FieldDate Field = iota
	FieldAmount
	FieldDescription
	FieldCard
	FieldCategory
	FieldComment
)

// Fields lists every field in selection order
var Fields = []Field{FieldDate, FieldAmount, FieldDescription, FieldCard, FieldCategory, FieldComment}

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldAmount:
		return "amount"
	case FieldDescription:
		return "description"
	case FieldCard:
		return "card"
	case FieldCategory:
		return "category"
	case FieldComment:
		return "comment"
	default:
		return "unknown"
	}
}

type keyword struct {
	token  string
	weight float64
}

// fieldKeywords holds header tokens per field (EN, UK, RU, PT, ES, DE). Tokens are lower-case.
var fieldKeywords = map[Field][]keyword{
	FieldDate: {
		{"date", 1.0}, {"transaction date", 1.0}, {"booking date", 0.9}, {"posting date", 0.9},
		{"value date", 0.8}, {"time", 0.4},
		{"дата", 1.0}, {"дата операції", 1.0}, {"дата транзакції", 1.0}, {"дата і час", 1.0},
		{"дата операции", 1.0}, {"дата и время", 1.0},
		{"data", 1.0}, {"data mov", 1.0}, {"data mov.", 1.0}, {"data valor", 0.8}, {"data movimento", 1.0},
		{"fecha", 1.0}, {"fecha operación", 1.0}, {"fecha valor", 0.8},
		{"datum", 1.0}, {"buchungstag", 1.0}, {"buchungsdatum", 1.0}, {"wertstellung", 0.8},
	},
	FieldAmount: {
		{"amount", 1.0}, {"sum", 0.9}, {"value", 0.6}, {"total", 0.6}, {"debit", 0.7}, {"credit", 0.7},
		{"сума", 1.0}, {"сума операції", 1.0}, {"сума в валюті картки", 1.0}, {"дебет", 0.7}, {"кредит", 0.7},
		{"сумма", 1.0}, {"сумма операции", 1.0},
		{"montante", 1.0}, {"valor", 0.9}, {"débito", 0.7}, {"crédito", 0.7},
		{"importe", 1.0}, {"cantidad", 0.8}, {"cargo", 0.6}, {"abono", 0.6},
		{"betrag", 1.0}, {"umsatz", 0.8},
	},
	FieldDescription: {
		{"description", 1.0}, {"details", 0.9}, {"detail", 0.9}, {"narrative", 0.9}, {"memo", 0.8},
		{"merchant", 0.9}, {"merchant name", 1.0}, {"payee", 0.9}, {"name", 0.5},
		{"опис", 1.0}, {"опис операції", 1.0}, {"деталі", 0.9}, {"деталі операції", 1.0},
		{"призначення", 0.9}, {"призначення платежу", 1.0}, {"контрагент", 0.7}, {"отримувач", 0.6},
		{"описание", 1.0}, {"детали", 0.9}, {"назначение", 0.9}, {"назначение платежа", 1.0}, {"получатель", 0.6},
		{"descrição", 1.0}, {"descricao", 1.0}, {"nome", 0.5},
		{"descripción", 1.0}, {"descripcion", 1.0}, {"concepto", 0.9},
		{"beschreibung", 1.0}, {"verwendungszweck", 1.0}, {"buchungstext", 0.9},
	},
	FieldCard: {
		{"card", 1.0}, {"card number", 1.0}, {"account", 0.6},
		{"картка", 1.0}, {"номер картки", 1.0}, {"рахунок", 0.6},
		{"карта", 1.0}, {"номер карты", 1.0}, {"счет", 0.6}, {"счёт", 0.6},
		{"cartão", 1.0}, {"cartao", 1.0}, {"conta", 0.6},
		{"tarjeta", 1.0}, {"cuenta", 0.6},
		{"karte", 1.0}, {"konto", 0.6},
	},
	FieldCategory: {
		{"category", 1.0}, {"type", 0.5}, {"group", 0.5},
		{"категорія", 1.0}, {"тип", 0.5},
		{"категория", 1.0},
		{"categoria", 1.0}, {"tipo", 0.5},
		{"categoría", 1.0},
		{"kategorie", 1.0},
	},
	FieldComment: {
		{"comment", 1.0}, {"comments", 1.0}, {"note", 0.9}, {"notes", 0.9}, {"remark", 0.8},
		{"коментар", 1.0}, {"примітка", 0.9},
		{"комментарий", 1.0}, {"примечание", 0.9},
		{"comentário", 1.0}, {"comentario", 1.0}, {"observações", 0.9},
		{"observaciones", 0.9},
		{"kommentar", 1.0}, {"notiz", 0.9}, {"bemerkung", 0.9},
	},
}

// fieldExclusions lists substrings that mark a label as belonging elsewhere
var fieldExclusions = map[Field][]string{
	FieldDate: {"amount", "сума", "сумма", "balance", "залишок", "остаток"},
	FieldAmount: {
		"balance", "залишок", "остаток", "saldo", "комісі", "комисс", "commission", "fee",
		"cashback", "кешбек", "кэшбэк", "курс", "rate", "date", "дата", "data", "fecha", "datum",
	},
	FieldDescription: {
		"amount", "сума", "сумма", "date", "дата", "card", "картк", "карт", "balance", "валют",
		"currency", "категор", "category", "коментар", "комментар", "comment", "mcc",
	},
	FieldCard: {"date", "дата", "amount", "сума", "сумма", "balance", "валют", "currency"},
	FieldCategory: {"date", "дата", "amount", "сума", "сумма"},
	FieldComment: {"date", "дата", "amount", "сума", "сумма"},
}

var fieldThresholds = map[Field]float64{
	FieldDate:        0.4,
	FieldAmount:      0.4,
	FieldDescription: 0.3,
	FieldCard:        0.4,
	FieldCategory:    0.4,
	FieldComment:     0.3,
}

// Threshold returns the minimum score a column needs to be assigned the field
func Threshold(f Field) float64 {
	return fieldThresholds[f]
}
