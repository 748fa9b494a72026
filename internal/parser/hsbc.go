package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// defaultWorkers bounds concurrent per-page column detection.
const defaultWorkers = 4

// HSBCParser handles HSBC UK bank statement text.
//
// HSBC statements print the transactions of each sheet as a fixed-width
// table between "BALANCE BROUGHT FORWARD" and "BALANCE CARRIED FORWARD":
//
//	Date | Payment type | Details | Paid out | Paid in | Balance
//
// Column positions are not declared and change from sheet to sheet, so they
// are inferred per page from character alignment. Dates are DD Mon YY and
// only printed on the first transaction of each day. Details wrap onto
// continuation lines with no type.
type HSBCParser struct {
	Logger *zap.Logger

	// Policy labels the amount column of five column pages.
	// Nil means PaidOutByPosition.
	Policy FiveColumnPolicy

	// Tolerance is passed to the Reconciler. Zero means exact.
	Tolerance decimal.Decimal

	// Workers bounds concurrent page processing. Zero means defaultWorkers.
	Workers int
}

func (p *HSBCParser) BankName() string {
	return "HSBC"
}

func (p *HSBCParser) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *HSBCParser) Parse(pages []string) (*models.StatementInfo, error) {
	if len(pages) == 0 {
		return nil, &MetadataError{Field: "pages", Reason: "statement has no pages"}
	}
	log := p.logger()

	info := &models.StatementInfo{
		Bank: models.BankHSBC,
	}

	totals, err := ScanTotals(pages[0])
	if err != nil {
		return nil, err
	}
	info.Totals = totals

	account, err := ScanAccountDetails(strings.Join(pages, "\n"))
	if err != nil {
		return nil, err
	}
	info.AccountHolder = account.Holder
	info.SortCode = account.SortCode
	info.AccountNumber = account.AccountNumber
	info.Sheets = account.Sheets

	if info.PeriodStart, info.PeriodEnd, err = ScanPeriod(pages[0]); err != nil {
		return nil, err
	}

	blocks := StatementBlocks(pages)
	if len(blocks) == 0 {
		return nil, ErrNoStatementBlocks
	}

	rows, err := p.extractPages(blocks)
	if err != nil {
		return nil, err
	}

	state := Assembly{Date: blocks[0].OpeningDate}
	for _, row := range rows {
		if state, err = state.Step(row); err != nil {
			return nil, err
		}
	}
	txs, err := state.Finish()
	if err != nil {
		return nil, err
	}

	reconciler := Reconciler{Tolerance: p.Tolerance}
	if info.Transactions, err = reconciler.Reconcile(totals.OpeningBalance, txs); err != nil {
		return nil, err
	}

	info.Warnings = CrossCheck(totals, info.Transactions)
	for _, w := range info.Warnings {
		log.Warn("statement totals cross-check", zap.String("account", info.AccountNumber), zap.String("warning", w))
	}

	info.DebugLines = debugLines(rows)

	log.Info("parsed statement",
		zap.String("account", info.AccountNumber),
		zap.Int("pages", len(pages)),
		zap.Int("blocks", len(blocks)),
		zap.Int("transactions", len(info.Transactions)),
	)

	return info, nil
}

// extractPages detects columns and extracts rows for every block. Pages are
// independent, so they run concurrently; the result is flattened back into
// page order. When several pages fail, the lowest page's error is returned.
func (p *HSBCParser) extractPages(blocks []models.PageBlock) ([]models.RawRow, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	log := p.logger()

	perPage := make([][]models.RawRow, len(blocks))
	perErr := make([]error, len(blocks))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			layout, rows, err := ExtractRows(block, p.Policy)
			if err != nil {
				perErr[i] = err
				return nil
			}
			log.Debug("detected page columns",
				zap.Int("page", layout.Page),
				zap.Int("width", layout.Width),
				zap.Int("columns", len(layout.Columns)),
				zap.Int("rows", len(rows)),
			)
			perPage[i] = rows
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range perErr {
		if err != nil {
			return nil, err
		}
	}

	var rows []models.RawRow
	for _, r := range perPage {
		rows = append(rows, r...)
	}
	return rows, nil
}

// CrossCheck compares the reconciled transactions with the summary figures
// printed on the first page. Differences are reported, not fatal.
func CrossCheck(totals models.StatementTotals, txs []models.Transaction) []string {
	var warnings []string

	closing := totals.OpeningBalance
	if len(txs) > 0 {
		closing = txs[len(txs)-1].Balance.Decimal
	}
	if !closing.Equal(totals.ClosingBalance) {
		warnings = append(warnings, fmt.Sprintf("closing balance %s does not match final balance %s",
			totals.ClosingBalance.StringFixed(2), closing.StringFixed(2)))
	}

	paidIn, paidOut := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.PaidIn.Valid {
			paidIn = paidIn.Add(tx.PaidIn.Decimal)
		}
		if tx.PaidOut.Valid {
			paidOut = paidOut.Add(tx.PaidOut.Decimal)
		}
	}
	if totals.PaymentsIn.Valid && !totals.PaymentsIn.Decimal.Equal(paidIn) {
		warnings = append(warnings, fmt.Sprintf("payments in %s does not match sum of paid in %s",
			totals.PaymentsIn.Decimal.StringFixed(2), paidIn.StringFixed(2)))
	}
	if totals.PaymentsOut.Valid && !totals.PaymentsOut.Decimal.Equal(paidOut) {
		warnings = append(warnings, fmt.Sprintf("payments out %s does not match sum of paid out %s",
			totals.PaymentsOut.Decimal.StringFixed(2), paidOut.StringFixed(2)))
	}

	return warnings
}

// maxDebugText is the longest line text kept in debug output, in runes.
const maxDebugText = 120

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func debugLines(rows []models.RawRow) []models.DebugLine {
	lines := make([]models.DebugLine, 0, len(rows))
	for _, row := range rows {
		dl := models.DebugLine{
			Page:    row.Page,
			LineNum: row.LineNum,
			Result:  "transaction",
		}
		if row.IsContinuation() {
			dl.Result = "continuation"
		}
		dl.Text = truncateRunes(row.Text, maxDebugText)
		lines = append(lines, dl)
	}
	return lines
}
