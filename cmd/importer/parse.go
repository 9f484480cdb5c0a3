package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

const maxPrintedErrors = 10

type parseOptions struct {
	mappingFile string
	output      string
	delimiter   string
	asJSON      bool
	store       bool
	saveMapping string
}

func newParseCmd(a *app) *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse <statement>",
		Short: "Parse a statement into transactions",
		Long: `Parse a statement into transactions. Without --mapping the columns are taken
from a saved mapping for the same header layout, or detected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mappingFile, "mapping", "m", "", "JSON file with the column mapping")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write transactions as CSV to this file (- for stdout)")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "CSV output delimiter")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&opts.store, "store", false, "store non-duplicate transactions in the repository")
	cmd.Flags().StringVar(&opts.saveMapping, "save-mapping", "", "remember the mapping for this header layout under the given bank name")
	return cmd
}

func (a *app) runParse(cmd *cobra.Command, path string, opts parseOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	file, err := readStatement(path)
	if err != nil {
		return err
	}

	var mapping *service.ImportMapping
	if opts.mappingFile != "" {
		if mapping, err = loadMapping(opts.mappingFile); err != nil {
			return err
		}
	}

	result, err := a.deps.ImportService.Parse(ctx, file, mapping)
	if err != nil {
		return err
	}

	if opts.saveMapping != "" {
		preview, err := a.deps.ImportService.ExtractPreview(ctx, file)
		if err != nil {
			return err
		}
		if err := a.deps.ImportService.SaveMapping(ctx, preview.Fingerprint, opts.saveMapping, result.Mapping); err != nil {
			return err
		}
		fmt.Fprintf(out, "Mapping saved for %s\n", opts.saveMapping)
	}

	if opts.store {
		stored := 0
		for i := range result.Transactions {
			tx := &result.Transactions[i]
			if tx.IsDuplicate {
				continue
			}
			if err := a.deps.Transactions.Create(ctx, tx); err != nil {
				return fmt.Errorf("failed to store row %d: %w", tx.Metadata.SourceRow, err)
			}
			stored++
		}
		fmt.Fprintf(out, "Stored %d transactions\n", stored)
	}

	if opts.output != "" {
		if err := exportTransactions(out, opts, result); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if opts.output != "-" {
		return printSummary(out, result)
	}
	return nil
}

func exportTransactions(stdout io.Writer, opts parseOptions, result *service.ImportResult) error {
	delim := []rune(opts.delimiter)
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}

	if opts.output == "-" {
		return writeTransactionsCSV(stdout, result.Transactions, delim[0])
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.output, err)
	}
	if err := writeTransactionsCSV(f, result.Transactions, delim[0]); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadMapping(path string) (*service.ImportMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}
	var m service.ImportMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping %s: %w", path, err)
	}
	return &m, nil
}

// printSummary writes counts, per-currency totals and the first row errors
func printSummary(w io.Writer, result *service.ImportResult) error {
	s := result.Summary
	fmt.Fprintf(w, "Batch:        %s\n", result.BatchID)
	fmt.Fprintf(w, "Currency:     %s\n", result.Currency)
	fmt.Fprintf(w, "Rows:         %d\n", s.TotalRows)
	fmt.Fprintf(w, "Transactions: %d\n", s.SuccessfulImports)
	fmt.Fprintf(w, "Duplicates:   %d\n", s.DuplicatesFound)
	fmt.Fprintf(w, "Errors:       %d\n", s.ErrorsCount)
	if s.EarliestDate != nil && s.LatestDate != nil {
		fmt.Fprintf(w, "Period:       %s .. %s\n", s.EarliestDate.Format("2006-01-02"), s.LatestDate.Format("2006-01-02"))
	}

	totals := money.NewTotals()
	for _, tx := range result.Transactions {
		if err := totals.Add(tx.Amount, tx.Currency); err != nil {
			return err
		}
	}
	for _, code := range sortedCodes(totals) {
		fmt.Fprintf(w, "Income %s:   %s\n", code, totals.Income[code].Display())
		fmt.Fprintf(w, "Expenses %s: %s\n", code, totals.Expenses[code].Display())
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nRow errors:")
		for i, e := range result.Errors {
			if i == maxPrintedErrors {
				fmt.Fprintf(w, "  ... and %d more\n", len(result.Errors)-maxPrintedErrors)
				break
			}
			if e.Column != "" {
				fmt.Fprintf(w, "  row %d (%s): %s\n", e.Row, e.Column, e.Error)
			} else {
				fmt.Fprintf(w, "  row %d: %s\n", e.Row, e.Error)
			}
		}
	}
	return nil
}

func sortedCodes(t *money.Totals) []string {
	seen := make(map[string]bool)
	for code := range t.Income {
		seen[code] = true
	}
	for code := range t.Expenses {
		seen[code] = true
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
