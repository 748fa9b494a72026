package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// columnHeaders are the transaction columns shared by every output format.
var columnHeaders = []string{"Date", "Type", "Details", "Paid out", "Paid in", "Balance"}

// dateFormat is used for transaction dates in all outputs.
const dateFormat = "02/01/2006"

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, info *models.StatementInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, info)
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, info *models.StatementInfo) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, kv := range metadataRows(info) {
			if err := writer.Write(kv); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(columnHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range info.Transactions {
		if err := writer.Write(transactionRow(txn)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// metadataRows returns the "# Label, value" rows written above the table.
func metadataRows(info *models.StatementInfo) [][]string {
	var rows [][]string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, []string{"# " + label, value})
		}
	}
	add("Bank", string(info.Bank))
	add("Account Holder", info.AccountHolder)
	add("Account Number", info.AccountNumber)
	add("Sort Code", info.SortCode)
	add("Statement Period", info.StatementPeriod())
	if info.Sheets.First > 0 {
		add("Sheets", fmt.Sprintf("%d-%d", info.Sheets.First, info.Sheets.Last))
	}
	if len(info.Transactions) > 0 {
		add("Opening Balance", info.Totals.OpeningBalance.StringFixed(2))
		add("Closing Balance", info.Totals.ClosingBalance.StringFixed(2))
	}
	return rows
}

func transactionRow(txn models.Transaction) []string {
	return []string{
		txn.Date.Format(dateFormat),
		txn.Type,
		txn.Details,
		formatAmount(txn.PaidOut),
		formatAmount(txn.PaidIn),
		formatAmount(txn.Balance),
	}
}

func formatAmount(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return ""
	}
	return amount.Decimal.StringFixed(2)
}
