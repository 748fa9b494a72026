package parser

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// Reconciler walks transactions keeping a running balance from the opening
// balance. Missing balances are filled with the running figure; stated
// balances must match it.
type Reconciler struct {
	// Tolerance is the largest accepted difference between a stated and a
	// computed balance. Zero requires exact equality.
	Tolerance decimal.Decimal
}

// Reconcile returns a copy of txs with every balance populated, or the
// first ReconciliationMismatchError.
func (r Reconciler) Reconcile(opening decimal.Decimal, txs []models.Transaction) ([]models.Transaction, error) {
	out := make([]models.Transaction, len(txs))
	running := opening

	for i, tx := range txs {
		running = running.Add(tx.Change())

		if !tx.Balance.Valid {
			tx.Balance = decimal.NewNullDecimal(running)
			out[i] = tx
			continue
		}

		if !r.matches(tx.Balance.Decimal, running) {
			return nil, &ReconciliationMismatchError{
				Page:        tx.Page,
				LineNum:     tx.LineNum,
				Line:        tx.Line,
				Index:       i,
				Transaction: tx,
				Expected:    tx.Balance.Decimal,
				Computed:    running,
			}
		}
		out[i] = tx
	}

	return out, nil
}

func (r Reconciler) matches(stated, computed decimal.Decimal) bool {
	if r.Tolerance.IsZero() {
		return stated.Equal(computed)
	}
	return stated.Sub(computed).Abs().LessThanOrEqual(r.Tolerance)
}

// Reconcile checks txs against opening with exact equality.
func Reconcile(opening decimal.Decimal, txs []models.Transaction) ([]models.Transaction, error) {
	return Reconciler{}.Reconcile(opening, txs)
}
