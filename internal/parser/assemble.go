package parser

import (
	"time"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// Assembly is the state carried while folding rows into transactions.
// Step never modifies its input; it returns the next state.
type Assembly struct {
	Date *time.Time
	Open *models.Transaction

	closed *closedList
}

// closedList holds closed transactions, newest first. States share tails,
// so closing a transaction never copies the earlier ones.
type closedList struct {
	tx    models.Transaction
	prev  *closedList
	count int
}

// Emitted returns the transactions closed so far, in input order.
func (a Assembly) Emitted() []models.Transaction {
	if a.closed == nil {
		return nil
	}
	out := make([]models.Transaction, a.closed.count)
	for n := a.closed; n != nil; n = n.prev {
		out[n.count-1] = n.tx
	}
	return out
}

// Step applies one row to the assembly state.
//
// A row with a date moves the carried date forward. A row with a type
// closes the open transaction and opens a new one dated with the carried
// date. Any other row is a continuation and is merged into the open one.
func (a Assembly) Step(row models.RawRow) (Assembly, error) {
	next := a
	if row.Date != nil {
		d := *row.Date
		next.Date = &d
	}

	if !row.IsContinuation() {
		if next.Date == nil {
			return a, &UndatedTransactionError{Page: row.Page, LineNum: row.LineNum, Line: row.Text}
		}
		closed, err := next.close()
		if err != nil {
			return a, err
		}
		tx := openTransaction(row, *next.Date)
		closed.Open = &tx
		return closed, nil
	}

	if next.Open == nil {
		return a, &OrphanedContinuationError{Page: row.Page, LineNum: row.LineNum, Line: row.Text}
	}
	merged := MergeContinuation(*next.Open, row)
	next.Open = &merged
	return next, nil
}

// Finish closes the open transaction, if any, and returns everything emitted.
func (a Assembly) Finish() ([]models.Transaction, error) {
	closed, err := a.close()
	if err != nil {
		return nil, err
	}
	return closed.Emitted(), nil
}

func (a Assembly) close() (Assembly, error) {
	if a.Open == nil {
		return a, nil
	}
	tx := *a.Open
	if tx.PaidOut.Valid && tx.PaidIn.Valid {
		return a, &ConflictingAmountsError{Page: tx.Page, LineNum: tx.LineNum, Line: tx.Line, Transaction: tx}
	}
	count := 1
	if a.closed != nil {
		count = a.closed.count + 1
	}
	return Assembly{Date: a.Date, closed: &closedList{tx: tx, prev: a.closed, count: count}}, nil
}

func openTransaction(row models.RawRow, date time.Time) models.Transaction {
	return models.Transaction{
		Date:    date,
		Type:    row.Type,
		Details: row.Details,
		PaidOut: row.PaidOut,
		PaidIn:  row.PaidIn,
		Balance: row.Balance,
		Page:    row.Page,
		LineNum: row.LineNum,
		Line:    row.Text,
	}
}

// MergeContinuation returns tx extended by a continuation row. Present
// amounts replace the transaction's amounts; details are appended on a new
// line.
func MergeContinuation(tx models.Transaction, row models.RawRow) models.Transaction {
	if row.PaidOut.Valid {
		tx.PaidOut = row.PaidOut
	}
	if row.PaidIn.Valid {
		tx.PaidIn = row.PaidIn
	}
	if row.Balance.Valid {
		tx.Balance = row.Balance
	}
	tx.Details = appendDetails(tx.Details, row.Details)
	return tx
}

func appendDetails(details, fragment string) string {
	switch {
	case fragment == "":
		return details
	case details == "":
		return fragment
	default:
		return details + "\n" + fragment
	}
}

// Assemble folds rows, in page and line order, into transactions. The
// output keeps input order.
func Assemble(rows []models.RawRow) ([]models.Transaction, error) {
	var state Assembly
	for _, row := range rows {
		next, err := state.Step(row)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state.Finish()
}
