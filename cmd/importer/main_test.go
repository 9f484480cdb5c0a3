package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/pkg/config"
)

// statement builds a small semicolon-separated export dated last month
func statement() string {
	day := time.Now().UTC().AddDate(0, -1, 0)
	return "Виписка по картці\n" +
		"Дата;Сума;Опис\n" +
		day.Format("02.01.2006") + ";-123,45;POS Purchase Shop\n" +
		day.AddDate(0, 0, 1).Format("02.01.2006") + ";2500,00;Salary\n" +
		"oops;-1,00;Broken\n"
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTGRES_ENABLED", "false")
	t.Setenv("IMPORT_DEFAULT_CURRENCY", "UAH")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeStatement(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(statement()), 0o644))
	return path
}

func TestParseCommand_Summary(t *testing.T) {
	path := writeStatement(t, t.TempDir(), "march.csv")

	out, err := runCLI(t, "parse", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Currency:     UAH")
	assert.Contains(t, out, "Rows:         3")
	assert.Contains(t, out, "Transactions: 2")
	assert.Contains(t, out, "Errors:       1")
	assert.Contains(t, out, "row 5 (date)")
	assert.Contains(t, out, "Income UAH:")
}

func TestParseCommand_CSVExport(t *testing.T) {
	path := writeStatement(t, t.TempDir(), "march.csv")

	out, err := runCLI(t, "parse", path, "--output", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,card,amount,currency,description,category,comment,income,duplicate,source_row,original_description", lines[0])
	assert.Contains(t, lines[1], ",-123.45,UAH,Shop,")
	assert.Contains(t, lines[2], ",2500.00,UAH,Salary,")
}

func TestParseCommand_JSONWithMapping(t *testing.T) {
	dir := t.TempDir()
	path := writeStatement(t, dir, "march.csv")
	mappingPath := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`{
		"date_column": {"index": 0},
		"amount_column": {"index": 1},
		"description_column": {"index": 2},
		"has_header": true,
		"header_row_index": 1
	}`), 0o644))

	out, err := runCLI(t, "parse", path, "--mapping", mappingPath, "--json")
	require.NoError(t, err)

	var result struct {
		Currency     string `json:"currency"`
		Transactions []struct {
			Amount int64  `json:"amount"`
			Date   string `json:"date"`
		} `json:"transactions"`
		Summary struct {
			TotalRows int `json:"total_rows"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "UAH", result.Currency)
	assert.Equal(t, 3, result.Summary.TotalRows)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, int64(-12345), result.Transactions[0].Amount)
	assert.Len(t, result.Transactions[0].Date, len("2006-01-02"))
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := runCLI(t, "parse", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = runCLI(t, "parse")
	assert.Error(t, err)

	path := writeStatement(t, t.TempDir(), "march.csv")
	_, err = runCLI(t, "parse", path, "-o", "-", "--delimiter", ";;")
	assert.Error(t, err)
}

func TestPreviewCommand(t *testing.T) {
	path := writeStatement(t, t.TempDir(), "march.csv")

	out, err := runCLI(t, "preview", path)
	require.NoError(t, err)
	assert.Contains(t, out, "march.csv (csv)")
	assert.Contains(t, out, "Header row:  2")
	assert.Contains(t, out, "Fingerprint: ")
	assert.Contains(t, out, "Сума")
	assert.Contains(t, out, "amount")
}

func TestWatchCommand_Once(t *testing.T) {
	inboxDir := t.TempDir()
	t.Setenv("INBOX_DIR", inboxDir)
	t.Setenv("INBOX_ARCHIVE_DIR", t.TempDir())
	writeStatement(t, inboxDir, "march.csv")

	out, err := runCLI(t, "watch", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "files 1, failed 0, stored 2")
	assert.NoFileExists(t, filepath.Join(inboxDir, "march.csv"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])

	buf.Reset()
	logger = newLogger(config.LogConfig{Level: "nonsense"}, &buf)
	logger.Debug("hidden")
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestWriteTransactionsCSV_Delimiter(t *testing.T) {
	txs := []repository.Transaction{{
		ID:          uuid.New(),
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      -5000,
		Currency:    "EUR",
		Description: "Lunch; with team",
		IsIncome:    false,
	}}

	var buf bytes.Buffer
	require.NoError(t, writeTransactionsCSV(&buf, txs, ';'))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "date;card;amount"))
	assert.Contains(t, lines[1], "2024-03-01;;-50.00;EUR;\"Lunch; with team\"")
}
