package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single assembled statement transaction.
// Details may span several lines joined with "\n".
type Transaction struct {
	Date    time.Time           `json:"date"`
	Type    string              `json:"type"` // e.g. VIS, DD, ATM, CR
	Details string              `json:"details"`
	PaidOut decimal.NullDecimal `json:"paidOut"`
	PaidIn  decimal.NullDecimal `json:"paidIn"`
	Balance decimal.NullDecimal `json:"balance"`

	// Source of the row that opened the transaction.
	Page    int    `json:"page"`
	LineNum int    `json:"lineNum"`
	Line    string `json:"-"`
}

// Change is the signed effect of the transaction on the balance.
// Absent amounts count as zero.
func (t Transaction) Change() decimal.Decimal {
	change := decimal.Zero
	if t.PaidIn.Valid {
		change = change.Add(t.PaidIn.Decimal)
	}
	if t.PaidOut.Valid {
		change = change.Sub(t.PaidOut.Decimal)
	}
	return change
}

// BankType represents supported bank statement formats.
type BankType string

const (
	BankHSBC BankType = "hsbc"
)

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	Page    int    `json:"page"`
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	Result  string `json:"result"` // "transaction", "continuation"
}

// Sheets is the inclusive range of sheet numbers covered by a statement.
type Sheets struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// StatementTotals holds the summary figures printed on the first page.
type StatementTotals struct {
	OpeningBalance decimal.Decimal     `json:"openingBalance"`
	ClosingBalance decimal.Decimal     `json:"closingBalance"`
	PaymentsIn     decimal.NullDecimal `json:"paymentsIn"`
	PaymentsOut    decimal.NullDecimal `json:"paymentsOut"`
}

// StatementInfo holds metadata extracted from the statement.
type StatementInfo struct {
	Bank          BankType
	AccountHolder string
	AccountNumber string
	SortCode      string
	Sheets        Sheets
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Totals        StatementTotals
	Transactions  []Transaction
	Warnings      []string
	DebugLines    []DebugLine
}

// StatementPeriod renders the period as "2 Jan 2006 to 2 Jan 2006".
func (s *StatementInfo) StatementPeriod() string {
	if s.PeriodStart.IsZero() || s.PeriodEnd.IsZero() {
		return ""
	}
	return s.PeriodStart.Format("2 Jan 2006") + " to " + s.PeriodEnd.Format("2 Jan 2006")
}
