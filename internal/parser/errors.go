package parser

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// ErrNoStatementBlocks is returned when no page holds a transaction table.
var ErrNoStatementBlocks = errors.New("no BALANCE BROUGHT FORWARD / BALANCE CARRIED FORWARD block found")

// ColumnDetectionError means a page did not produce 5 or 6 column candidates.
type ColumnDetectionError struct {
	Page    int
	Columns []models.ColumnSpan
}

func (e *ColumnDetectionError) Error() string {
	return fmt.Sprintf("page %d: detected %d columns, want 5 or 6 (spans %v)", e.Page, len(e.Columns), spanBounds(e.Columns))
}

// DateFormatError means a date cell held text that is not a DD Mon YY date.
type DateFormatError struct {
	Page    int
	LineNum int
	Line    string
	Value   string
	Err     error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("page %d line %d: invalid date %q in %q", e.Page, e.LineNum, e.Value, e.Line)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

// AmountFormatError means an amount cell held text that is not a number.
type AmountFormatError struct {
	Page    int
	LineNum int
	Line    string
	Role    models.Role
	Value   string
	Err     error
}

func (e *AmountFormatError) Error() string {
	return fmt.Sprintf("page %d line %d: invalid %s amount %q in %q", e.Page, e.LineNum, e.Role, e.Value, e.Line)
}

func (e *AmountFormatError) Unwrap() error { return e.Err }

// OrphanedContinuationError means a continuation line came before any transaction.
type OrphanedContinuationError struct {
	Page    int
	LineNum int
	Line    string
}

func (e *OrphanedContinuationError) Error() string {
	return fmt.Sprintf("page %d line %d: continuation line before any transaction: %q", e.Page, e.LineNum, e.Line)
}

// UndatedTransactionError means a transaction opened before any date was seen.
type UndatedTransactionError struct {
	Page    int
	LineNum int
	Line    string
}

func (e *UndatedTransactionError) Error() string {
	return fmt.Sprintf("page %d line %d: transaction has no date and none was carried: %q", e.Page, e.LineNum, e.Line)
}

// ConflictingAmountsError means a transaction ended up with both a paid out
// and a paid in amount.
type ConflictingAmountsError struct {
	Page        int
	LineNum     int
	Line        string
	Transaction models.Transaction
}

func (e *ConflictingAmountsError) Error() string {
	return fmt.Sprintf("page %d line %d: transaction %s %q has both paid out %s and paid in %s",
		e.Page, e.LineNum, e.Transaction.Date.Format("02 Jan 06"), e.Transaction.Details,
		e.Transaction.PaidOut.Decimal.StringFixed(2), e.Transaction.PaidIn.Decimal.StringFixed(2))
}

// ReconciliationMismatchError means the balance printed on the statement
// differs from the running balance.
type ReconciliationMismatchError struct {
	Page        int
	LineNum     int
	Line        string
	Index       int
	Transaction models.Transaction
	Expected    decimal.Decimal // stated on the document
	Computed    decimal.Decimal
}

func (e *ReconciliationMismatchError) Error() string {
	return fmt.Sprintf("page %d line %d: transaction %d (%s %s %q): expected balance %s but computed %s",
		e.Page, e.LineNum, e.Index, e.Transaction.Date.Format("02 Jan 06"), e.Transaction.Type, e.Transaction.Details,
		e.Expected.StringFixed(2), e.Computed.StringFixed(2))
}

// MetadataError means a statement header or summary figure was missing or inconsistent.
type MetadataError struct {
	Field  string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("statement metadata %s: %s", e.Field, e.Reason)
}

// ErrorKind names the error class for API responses and metrics labels.
func ErrorKind(err error) string {
	var (
		colErr      *ColumnDetectionError
		dateErr     *DateFormatError
		amountErr   *AmountFormatError
		orphanErr   *OrphanedContinuationError
		undatedErr  *UndatedTransactionError
		conflictErr *ConflictingAmountsError
		reconErr    *ReconciliationMismatchError
		metaErr     *MetadataError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &colErr):
		return "column_detection"
	case errors.As(err, &dateErr):
		return "date_format"
	case errors.As(err, &amountErr):
		return "amount_format"
	case errors.As(err, &orphanErr):
		return "orphaned_continuation"
	case errors.As(err, &undatedErr):
		return "undated_transaction"
	case errors.As(err, &conflictErr):
		return "conflicting_amounts"
	case errors.As(err, &reconErr):
		return "reconciliation_mismatch"
	case errors.As(err, &metaErr):
		return "metadata"
	case errors.Is(err, ErrNoStatementBlocks):
		return "no_statement_blocks"
	default:
		return "unknown"
	}
}

func spanBounds(spans []models.ColumnSpan) [][2]int {
	out := make([][2]int, len(spans))
	for i, s := range spans {
		out[i] = [2]int{s.Start, s.End}
	}
	return out
}
