package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// sixColumns are the left edges used to lay out six column fixtures.
var sixColumns = []int{0, 11, 17, 50, 63, 76}

// tableLine places each cell left aligned at its column offset.
func tableLine(offsets []int, cells ...string) string {
	var b []rune
	for i, c := range cells {
		if c == "" {
			continue
		}
		for len(b) < offsets[i] {
			b = append(b, ' ')
		}
		b = append(b, []rune(c)...)
	}
	return string(b)
}

// groundTruth returns the spans the fixture rows were generated with.
func groundTruth(offsets []int, rows [][]string) []models.ColumnSpan {
	spans := make([]models.ColumnSpan, len(offsets))
	for i, off := range offsets {
		widest := 0
		for _, r := range rows {
			if n := len([]rune(r[i])); n > widest {
				widest = n
			}
		}
		spans[i] = models.ColumnSpan{Start: off, End: off + widest}
	}
	return spans
}

func blockOf(page int, offsets []int, rows [][]string) models.PageBlock {
	block := models.PageBlock{Page: page}
	for _, r := range rows {
		block.Lines = append(block.Lines, tableLine(offsets, r...))
	}
	return block
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func someDec(t *testing.T, s string) decimal.NullDecimal {
	t.Helper()
	return decimal.NewNullDecimal(dec(t, s))
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2 Jan 06", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func nullString(n decimal.NullDecimal) string {
	if !n.Valid {
		return "<absent>"
	}
	return n.Decimal.StringFixed(2)
}

func lines(s ...string) string {
	return strings.Join(s, "\n")
}
