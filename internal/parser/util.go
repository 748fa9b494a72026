package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// statementBlockPattern isolates the transaction table of one page. Group 1
// is whatever precedes the brought-forward marker on its line (usually the
// opening date), group 2 is the table body.
var statementBlockPattern = regexp.MustCompile(
	`(?is)(?:^|\n)([^\n]*?)BALANCE\s?BROUGHT\s?FORWARD[^\n]*\n(.*?)BALANCE\s?CARRIED\s?FORWARD`,
)

// accountMetaPattern matches the account header row and the values row beneath it.
var accountMetaPattern = regexp.MustCompile(
	`(?i)Account\s?Name\s+Sortcode\s+Account\s?Number\s+Sheet Number\n+([A-Z\s]+?)\s\s+([\d\-]+)\s\s+(\d+)\s\s+(\d+)\n`,
)

// periodPattern matches "1 January to 31 January 2024" and
// "28 December 2023 to 27 January 2024".
var periodPattern = regexp.MustCompile(
	`(?i)(\d{1,2}) ([a-z]+)(?: (\d{4}))? to (\d{1,2}) ([a-z]+) (\d{4})`,
)

// figurePattern finds the first number in a summary line once whitespace
// has been removed.
var figurePattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// StatementBlocks returns the transaction table of every page that has one,
// keeping page order. Pages without a brought-forward/carried-forward pair
// are skipped.
func StatementBlocks(pages []string) []models.PageBlock {
	var blocks []models.PageBlock
	for i, page := range pages {
		m := statementBlockPattern.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		block := models.PageBlock{
			Page:  i + 1,
			Lines: strings.Split(m[2], "\n"),
		}
		if d, err := parseDate(m[1]); err == nil {
			block.OpeningDate = &d
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// ScanFigure reads the amount printed after label on the summary page.
func ScanFigure(page, label string) (decimal.Decimal, error) {
	pat := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `([^\n]*)`)
	m := pat.FindStringSubmatch(page)
	if m == nil {
		return decimal.Decimal{}, &MetadataError{Field: label, Reason: "not found"}
	}

	raw := compactFigure(m[1])
	if raw == "" {
		return decimal.Decimal{}, &MetadataError{Field: label, Reason: fmt.Sprintf("no amount in %q", strings.TrimSpace(m[1]))}
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return decimal.Decimal{}, &MetadataError{Field: label, Reason: err.Error()}
	}
	return amount, nil
}

// compactFigure removes all whitespace from rest and returns its first
// number, with the polarity marker kept when it directly follows the number
// and is not the start of a word.
func compactFigure(rest string) string {
	compact := strings.Join(strings.Fields(rest), "")
	loc := figurePattern.FindStringIndex(compact)
	if loc == nil {
		return ""
	}
	raw := compact[loc[0]:loc[1]]
	tail := compact[loc[1]:]
	if strings.HasPrefix(tail, polarityMarker) {
		after := tail[len(polarityMarker):]
		if after == "" || !unicode.IsLetter([]rune(after)[0]) {
			raw += polarityMarker
		}
	}
	return raw
}

// ScanTotals reads the account summary table on the first page. Opening
// and closing balances are required; payment totals are optional.
func ScanTotals(firstPage string) (models.StatementTotals, error) {
	var totals models.StatementTotals
	var err error

	if totals.OpeningBalance, err = ScanFigure(firstPage, "Opening Balance"); err != nil {
		return totals, err
	}
	if totals.ClosingBalance, err = ScanFigure(firstPage, "Closing Balance"); err != nil {
		return totals, err
	}
	if in, err := ScanFigure(firstPage, "Payments In"); err == nil {
		totals.PaymentsIn = decimal.NewNullDecimal(in)
	}
	if out, err := ScanFigure(firstPage, "Payments Out"); err == nil {
		totals.PaymentsOut = decimal.NewNullDecimal(out)
	}
	return totals, nil
}

// AccountDetails holds the values of the per-sheet account header.
type AccountDetails struct {
	Holder        string
	SortCode      string
	AccountNumber string
	Sheets        models.Sheets
}

// ScanAccountDetails reads the account header from every sheet and checks
// that all sheets belong to the same account.
func ScanAccountDetails(allText string) (AccountDetails, error) {
	matches := accountMetaPattern.FindAllStringSubmatch(allText, -1)
	if len(matches) == 0 {
		return AccountDetails{}, &MetadataError{Field: "account details", Reason: "header not found"}
	}

	for _, field := range []struct {
		name  string
		group int
	}{{"account name", 1}, {"sort code", 2}, {"account number", 3}} {
		first := strings.TrimSpace(matches[0][field.group])
		for _, m := range matches[1:] {
			if strings.TrimSpace(m[field.group]) != first {
				return AccountDetails{}, &MetadataError{Field: field.name, Reason: "differs between sheets"}
			}
		}
	}

	firstSheet, _ := strconv.Atoi(matches[0][4])
	lastSheet, _ := strconv.Atoi(matches[len(matches)-1][4])
	if firstSheet > lastSheet {
		return AccountDetails{}, &MetadataError{Field: "sheet numbers", Reason: fmt.Sprintf("first sheet %d after last sheet %d", firstSheet, lastSheet)}
	}

	return AccountDetails{
		Holder:        strings.TrimSpace(matches[0][1]),
		SortCode:      strings.TrimSpace(matches[0][2]),
		AccountNumber: strings.TrimSpace(matches[0][3]),
		Sheets:        models.Sheets{First: firstSheet, Last: lastSheet},
	}, nil
}

// ScanPeriod reads the statement date range from the first page. A start
// date without a year takes the end date's year.
func ScanPeriod(firstPage string) (time.Time, time.Time, error) {
	m := periodPattern.FindStringSubmatch(firstPage)
	if m == nil {
		return time.Time{}, time.Time{}, &MetadataError{Field: "date range", Reason: "not found"}
	}

	startYear := m[3]
	if startYear == "" {
		startYear = m[6]
	}
	start, err := parseLongDate(m[1], m[2], startYear)
	if err != nil {
		return time.Time{}, time.Time{}, &MetadataError{Field: "date range", Reason: err.Error()}
	}
	end, err := parseLongDate(m[4], m[5], m[6])
	if err != nil {
		return time.Time{}, time.Time{}, &MetadataError{Field: "date range", Reason: err.Error()}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, &MetadataError{Field: "date range", Reason: "start date after end date"}
	}
	return start, end, nil
}

func parseLongDate(day, month, year string) (time.Time, error) {
	s := day + " " + month + " " + year
	if t, err := time.Parse("2 January 2006", s); err == nil {
		return t, nil
	}
	return time.Parse("2 Jan 2006", s)
}
