package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// dateLayout is the DD Mon YY format of the date column.
const dateLayout = "2 Jan 06"

// polarityMarker trails an amount that must be negated, e.g. "1,234.56D".
const polarityMarker = "D"

// parseDate parses a date cell such as "01 Jan 24".
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// parseAmount converts a cell such as "1,234.56" or "1,234.56 D" to a decimal.
// Thousands separators are dropped and a trailing polarity marker flips the sign.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negate := false
	if strings.HasSuffix(s, polarityMarker) {
		negate = true
		s = strings.TrimSpace(strings.TrimSuffix(s, polarityMarker))
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negate {
		d = d.Neg()
	}
	return d, nil
}

// cell returns the trimmed content of line within span. line must already
// be padded to the page width.
func cell(line []rune, span models.ColumnSpan) string {
	end := span.End
	if end > len(line) {
		end = len(line)
	}
	if span.Start >= end {
		return ""
	}
	return strings.TrimSpace(string(line[span.Start:end]))
}

func padRunes(line []rune, width int) []rune {
	if len(line) >= width {
		return line
	}
	padded := make([]rune, width)
	copy(padded, line)
	for i := len(line); i < width; i++ {
		padded[i] = ' '
	}
	return padded
}

// ExtractRow cuts a non-blank line into fields using the page layout.
// Empty cells are absent. lineNum is the 1-based line within the page block.
func ExtractRow(layout PageLayout, line string, lineNum int) (models.RawRow, error) {
	text := strings.TrimRight(line, "\r\n")
	runes := padRunes([]rune(strings.TrimRight(text, " \t")), layout.Width)

	row := models.RawRow{Page: layout.Page, LineNum: lineNum, Text: text}

	for _, col := range layout.Columns {
		value := cell(runes, col)
		if value == "" {
			continue
		}

		switch col.Role {
		case models.RoleDate:
			d, err := parseDate(value)
			if err != nil {
				return models.RawRow{}, &DateFormatError{Page: layout.Page, LineNum: lineNum, Line: text, Value: value, Err: err}
			}
			row.Date = &d
		case models.RoleType:
			row.Type = value
		case models.RoleDetails:
			row.Details = value
		case models.RolePaidOut, models.RolePaidIn, models.RoleBalance:
			amount, err := parseAmount(value)
			if err != nil {
				return models.RawRow{}, &AmountFormatError{Page: layout.Page, LineNum: lineNum, Line: text, Role: col.Role, Value: value, Err: err}
			}
			nd := decimal.NewNullDecimal(amount)
			switch col.Role {
			case models.RolePaidOut:
				row.PaidOut = nd
			case models.RolePaidIn:
				row.PaidIn = nd
			default:
				row.Balance = nd
			}
		}
	}

	return row, nil
}

// ExtractRows detects the layout of a page block and converts every
// non-blank line into a RawRow, in line order.
func ExtractRows(block models.PageBlock, policy FiveColumnPolicy) (PageLayout, []models.RawRow, error) {
	layout, err := DetectLayout(block, policy)
	if err != nil {
		return PageLayout{}, nil, err
	}

	rows := make([]models.RawRow, 0, len(block.Lines))
	for i, line := range block.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := ExtractRow(layout, line, i+1)
		if err != nil {
			return PageLayout{}, nil, err
		}
		rows = append(rows, row)
	}
	return layout, rows, nil
}
