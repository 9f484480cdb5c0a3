package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
)

func newPreviewCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <statement>",
		Short: "Show the detected header, sample rows and suggested column mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readStatement(args[0])
			if err != nil {
				return err
			}

			preview, err := a.deps.ImportService.ExtractPreview(cmd.Context(), file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}
			printPreview(out, file, preview)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")
	return cmd
}

func printPreview(w io.Writer, file service.File, p *service.Preview) {
	fmt.Fprintf(w, "File:        %s (%s)\n", file.Name, file.Type)
	fmt.Fprintf(w, "Header row:  %d", p.HeaderRowIndex+1)
	if p.HeaderFallback {
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Currency:    %s\n", p.Currency)
	fmt.Fprintf(w, "Fingerprint: %s\n", p.Fingerprint)
	if p.SavedMapping {
		fmt.Fprintln(w, "Mapping:     saved")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tFIELD")
	fields := mappedFields(p.SuggestedMapping)
	for i, label := range p.Columns {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, label, fields[i])
	}
	tw.Flush()

	if p.SuggestedMapping == nil {
		fmt.Fprintln(w, "\nDate or amount column not recognized; pass --mapping to parse.")
	}

	if len(p.SampleRows) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(p.Columns, "\t"))
		for _, row := range p.SampleRows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		tw.Flush()
	}
}

// mappedFields names the field each column index was assigned to
func mappedFields(m *service.ImportMapping) map[int]string {
	fields := make(map[int]string)
	if m == nil {
		return fields
	}
	for name, c := range map[string]*service.Column{
		"date":        m.DateColumn,
		"amount":      m.AmountColumn,
		"description": m.DescriptionColumn,
		"card":        m.CardColumn,
		"category":    m.CategoryColumn,
		"comment":     m.CommentColumn,
	} {
		if c != nil && c.Index >= 0 {
			fields[c.Index] = name
		}
	}
	return fields
}
