package writer

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

const transactionsSheet = "Transactions"

// XLSXWriter writes transactions to an Excel workbook. Amounts are written
// as numbers with two decimal places; details keep their line breaks.
type XLSXWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, info *models.StatementInfo) error {
	f, err := w.build(info)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return nil
}

// Write writes the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, info *models.StatementInfo) error {
	f, err := w.build(info)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) build(info *models.StatementInfo) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4, Alignment: &excelize.Alignment{Vertical: "top"}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	if w.IncludeHeader {
		for _, kv := range metadataRows(info) {
			if err := setRow(f, row, []interface{}{kv[0], kv[1]}); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
	}

	header := make([]interface{}, len(columnHeaders))
	for i, h := range columnHeaders {
		header[i] = h
	}
	if err := setRow(f, row, header); err != nil {
		f.Close()
		return nil, err
	}
	row++
	first := row

	for _, txn := range info.Transactions {
		values := []interface{}{
			txn.Date.Format(dateFormat),
			txn.Type,
			txn.Details,
			amountCell(txn.PaidOut),
			amountCell(txn.PaidIn),
			amountCell(txn.Balance),
		}
		if err := setRow(f, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	if row > first {
		last := row - 1
		if err := f.SetCellStyle(transactionsSheet, fmt.Sprintf("C%d", first), fmt.Sprintf("C%d", last), wrap); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style details: %w", err)
		}
		if err := f.SetCellStyle(transactionsSheet, fmt.Sprintf("D%d", first), fmt.Sprintf("F%d", last), money); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(transactionsSheet, "C", "C", 40); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	return f, nil
}

// amountCell leaves absent amounts blank.
func amountCell(amount decimal.NullDecimal) interface{} {
	if !amount.Valid {
		return nil
	}
	return amount.Decimal.InexactFloat64()
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(transactionsSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
