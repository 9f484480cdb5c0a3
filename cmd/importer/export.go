package main

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

// exportRow is one line of the transactions CSV
type exportRow struct {
	Date        string `csv:"date"`
	Card        string `csv:"card"`
	Amount      string `csv:"amount"`
	Currency    string `csv:"currency"`
	Description string `csv:"description"`
	Category    string `csv:"category"`
	Comment     string `csv:"comment"`
	Income      bool   `csv:"income"`
	Duplicate   bool   `csv:"duplicate"`
	SourceRow   int    `csv:"source_row"`
	Original    string `csv:"original_description"`
}

func toExportRows(txs []repository.Transaction) []*exportRow {
	rows := make([]*exportRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &exportRow{
			Date:        tx.DateString(),
			Card:        tx.Card,
			Amount:      money.New(tx.Amount, tx.Currency).String(),
			Currency:    tx.Currency,
			Description: tx.Description,
			Category:    tx.Category,
			Comment:     tx.Comment,
			Income:      tx.IsIncome,
			Duplicate:   tx.IsDuplicate,
			SourceRow:   tx.Metadata.SourceRow,
			Original:    tx.OriginalDescription,
		})
	}
	return rows
}

// writeTransactionsCSV writes the transactions with a header line
func writeTransactionsCSV(w io.Writer, txs []repository.Transaction, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(toExportRows(txs), gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
