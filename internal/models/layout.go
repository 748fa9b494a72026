package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the semantic meaning of a detected column.
type Role string

const (
	RoleDate    Role = "date"
	RoleType    Role = "type"
	RoleDetails Role = "details"
	RolePaidOut Role = "paid_out"
	RolePaidIn  Role = "paid_in"
	RoleBalance Role = "balance"
)

// ColumnSpan is a half-open rune offset range [Start, End) within a page.
type ColumnSpan struct {
	Start int
	End   int
	Role  Role
}

// Width returns the number of offsets covered by the span.
func (c ColumnSpan) Width() int {
	return c.End - c.Start
}

// PageBlock is the transaction table text of one page, already isolated
// between the brought-forward and carried-forward markers.
type PageBlock struct {
	Page  int // 1-based source page
	Lines []string

	// OpeningDate is the date printed on the brought-forward line, if any.
	OpeningDate *time.Time
}

// RawRow is one non-blank block line cut into typed fields.
// A row without a type label is a continuation line; it may still carry a
// date, which moves the carried date forward.
type RawRow struct {
	Page    int
	LineNum int
	Text    string

	Date    *time.Time
	Type    string
	Details string
	PaidOut decimal.NullDecimal
	PaidIn  decimal.NullDecimal
	Balance decimal.NullDecimal
}

// IsContinuation reports whether the row extends the previous transaction.
func (r RawRow) IsContinuation() bool {
	return r.Type == ""
}
