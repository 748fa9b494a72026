package parser

import (
	"strings"
	"unicode"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// sixColumnRoles is the fixed left-to-right order of a full transaction table.
var sixColumnRoles = []models.Role{
	models.RoleDate,
	models.RoleType,
	models.RoleDetails,
	models.RolePaidOut,
	models.RolePaidIn,
	models.RoleBalance,
}

// FiveColumnPolicy decides the role of the single amount column on a page
// that is missing either the paid out or the paid in column.
type FiveColumnPolicy func(amount models.ColumnSpan, width int) models.Role

// PaidOutByPosition treats the amount column as paid out when it starts
// between 60% and 70% of the line width, which is where HSBC places the
// paid out column in a full six column table. Anything else is paid in.
func PaidOutByPosition(amount models.ColumnSpan, width int) models.Role {
	if width <= 0 {
		return models.RolePaidIn
	}
	if amount.Start*10 > width*6 && amount.Start*10 < width*7 {
		return models.RolePaidOut
	}
	return models.RolePaidIn
}

// PageLayout is the labelled column layout of a single page.
// Layouts are never reused across pages.
type PageLayout struct {
	Page    int
	Width   int
	Columns []models.ColumnSpan
}

// Column returns the span with the given role, if the page has one.
func (l PageLayout) Column(role models.Role) (models.ColumnSpan, bool) {
	for _, c := range l.Columns {
		if c.Role == role {
			return c, true
		}
	}
	return models.ColumnSpan{}, false
}

// blockLines splits a page block into lines as rune slices and returns the
// longest line length.
func blockLines(block models.PageBlock) ([][]rune, int) {
	lines := make([][]rune, len(block.Lines))
	width := 0
	for i, l := range block.Lines {
		lines[i] = []rune(strings.TrimRight(l, "\r\n"))
		if len(lines[i]) > width {
			width = len(lines[i])
		}
	}
	return lines, width
}

func isBlank(line []rune) bool {
	for _, r := range line {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// DetectColumns infers the column candidates of a page from the vertical
// alignment of its characters. Roles are left unassigned.
//
// Every offset where any non-blank line has a non-space character is
// occupied. Single-offset gaps between two occupied offsets are closed so
// that "01 Jan 24" stays one column. Each maximal occupied run is a column.
func DetectColumns(block models.PageBlock) ([]models.ColumnSpan, int, error) {
	lines, width := blockLines(block)

	occupied := make([]bool, width)
	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		for i, r := range line {
			if !unicode.IsSpace(r) {
				occupied[i] = true
			}
		}
	}

	merged := make([]bool, width)
	copy(merged, occupied)
	for i := 1; i < width-1; i++ {
		if !occupied[i] && occupied[i-1] && occupied[i+1] {
			merged[i] = true
		}
	}

	var spans []models.ColumnSpan
	start := -1
	for i := 0; i <= width; i++ {
		on := i < width && merged[i]
		switch {
		case on && start < 0:
			start = i
		case !on && start >= 0:
			spans = append(spans, models.ColumnSpan{Start: start, End: i})
			start = -1
		}
	}

	if len(spans) < 5 || len(spans) > 6 {
		return nil, width, &ColumnDetectionError{Page: block.Page, Columns: spans}
	}
	return spans, width, nil
}

// LabelColumns assigns roles to detected spans. Six spans are labelled in
// the fixed table order. With five spans the fourth is the only amount
// column besides the balance, and policy decides whether it is paid out or
// paid in.
func LabelColumns(page int, spans []models.ColumnSpan, width int, policy FiveColumnPolicy) (PageLayout, error) {
	layout := PageLayout{Page: page, Width: width}

	switch len(spans) {
	case 6:
		for i, s := range spans {
			s.Role = sixColumnRoles[i]
			layout.Columns = append(layout.Columns, s)
		}
	case 5:
		if policy == nil {
			policy = PaidOutByPosition
		}
		roles := []models.Role{models.RoleDate, models.RoleType, models.RoleDetails, policy(spans[3], width), models.RoleBalance}
		for i, s := range spans {
			s.Role = roles[i]
			layout.Columns = append(layout.Columns, s)
		}
	default:
		return PageLayout{}, &ColumnDetectionError{Page: page, Columns: spans}
	}

	return layout, nil
}

// DetectLayout runs detection and labelling for one page.
func DetectLayout(block models.PageBlock, policy FiveColumnPolicy) (PageLayout, error) {
	spans, width, err := DetectColumns(block)
	if err != nil {
		return PageLayout{}, err
	}
	return LabelColumns(block.Page, spans, width, policy)
}
