package parser

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

var fiveColumns = []int{0, 11, 17, 52, 72}

func samplePages() []string {
	page1 := lines(
		"HSBC UK Bank plc",
		"Your Statement",
		"1 January to 31 January 2024",
		"Account Summary",
		"Opening Balance              100.00",
		"Payments In                1,050.00",
		"Payments Out                  40.00",
		"Closing Balance            1,110.00",
		"Account Name                Sortcode      Account Number   Sheet Number",
		"MR JOHN SMITH               40-12-34      87654321         12",
		"Your Bank Account details",
		"Date       Pay   Details",
		tableLine(sixColumns, "01 Jan 24", "", "BALANCE BROUGHT FORWARD", "", "", "100.00"),
		tableLine(sixColumns, "01 Jan 24", "DD", "GYM LTD", "20.00", "", "80.00"),
		tableLine(sixColumns, "", "CR", "SALARY", "", "1,050.00", "1,130.00"),
		tableLine(sixColumns, "02 Jan 24", "VIS", "TESCO STORES 2041", "10.00", "", ""),
		tableLine(sixColumns, "", "", "LONDON", "", "", ""),
		tableLine(sixColumns, "", "", "BALANCE CARRIED FORWARD", "", "", "1,120.00"),
		"Information about the Financial Services Compensation Scheme",
	)
	page2 := lines(
		"Account Name                Sortcode      Account Number   Sheet Number",
		"MR JOHN SMITH               40-12-34      87654321         13",
		tableLine(fiveColumns, "", "", "BALANCE BROUGHT FORWARD", "", "1,120.00"),
		tableLine(fiveColumns, "03 Jan 24", "DD", "COUNCIL TAX", "10.00", "1,110.00"),
		tableLine(fiveColumns, "", "", "BALANCE CARRIED FORWARD", "", "1,110.00"),
	)
	return []string{page1, page2}
}

func TestHSBCParser_Parse(t *testing.T) {
	p := &HSBCParser{}

	info, err := p.Parse(samplePages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.AccountNumber != "87654321" {
		t.Errorf("account number: got %q, want %q", info.AccountNumber, "87654321")
	}
	if info.SortCode != "40-12-34" {
		t.Errorf("sort code: got %q, want %q", info.SortCode, "40-12-34")
	}
	if info.AccountHolder != "MR JOHN SMITH" {
		t.Errorf("account holder: got %q, want %q", info.AccountHolder, "MR JOHN SMITH")
	}
	if info.Sheets != (models.Sheets{First: 12, Last: 13}) {
		t.Errorf("sheets: got %+v, want 12-13", info.Sheets)
	}
	if got := info.StatementPeriod(); got != "1 Jan 2024 to 31 Jan 2024" {
		t.Errorf("period: got %q", got)
	}
	if len(info.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", info.Warnings)
	}

	want := []struct {
		date, typ, details, out, in, balance string
	}{
		{"01 Jan 24", "DD", "GYM LTD", "20.00", "<absent>", "80.00"},
		{"01 Jan 24", "CR", "SALARY", "<absent>", "1050.00", "1130.00"},
		{"02 Jan 24", "VIS", "TESCO STORES 2041\nLONDON", "10.00", "<absent>", "1120.00"},
		{"03 Jan 24", "DD", "COUNCIL TAX", "10.00", "<absent>", "1110.00"},
	}
	if len(info.Transactions) != len(want) {
		t.Fatalf("transactions: got %d, want %d", len(info.Transactions), len(want))
	}
	for i, w := range want {
		tx := info.Transactions[i]
		if tx.Date.Format("02 Jan 06") != w.date {
			t.Errorf("[%d] date: got %s, want %s", i, tx.Date.Format("02 Jan 06"), w.date)
		}
		if tx.Type != w.typ || tx.Details != w.details {
			t.Errorf("[%d] got %q %q, want %q %q", i, tx.Type, tx.Details, w.typ, w.details)
		}
		if nullString(tx.PaidOut) != w.out || nullString(tx.PaidIn) != w.in || nullString(tx.Balance) != w.balance {
			t.Errorf("[%d] amounts: got out %s in %s bal %s, want %s %s %s", i,
				nullString(tx.PaidOut), nullString(tx.PaidIn), nullString(tx.Balance), w.out, w.in, w.balance)
		}
	}

	if len(info.DebugLines) != 5 {
		t.Errorf("debug lines: got %d, want 5", len(info.DebugLines))
	}
	if info.DebugLines[3].Result != "continuation" {
		t.Errorf("debug line 3: got %q, want continuation", info.DebugLines[3].Result)
	}
}

func TestHSBCParser_FirstRowUsesBroughtForwardDate(t *testing.T) {
	pages := samplePages()
	pages[0] = strings.Replace(pages[0],
		tableLine(sixColumns, "01 Jan 24", "DD", "GYM LTD", "20.00", "", "80.00"),
		tableLine(sixColumns, "", "DD", "GYM LTD", "20.00", "", "80.00"), 1)

	info, err := (&HSBCParser{Workers: 1}).Parse(pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := info.Transactions[0].Date.Format("02 Jan 06"); got != "01 Jan 24" {
		t.Errorf("date: got %s, want 01 Jan 24", got)
	}
}

func TestHSBCParser_BalanceMismatch(t *testing.T) {
	pages := samplePages()
	pages[0] = strings.Replace(pages[0], "1,130.00", "1,131.00", 1)

	_, err := (&HSBCParser{}).Parse(pages)
	var mismatch *ReconciliationMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want ReconciliationMismatchError", err)
	}
	if mismatch.Expected.StringFixed(2) != "1131.00" || mismatch.Computed.StringFixed(2) != "1130.00" {
		t.Errorf("got expected %s computed %s", mismatch.Expected, mismatch.Computed)
	}
	if mismatch.Page != 1 || mismatch.LineNum != 2 || !strings.Contains(mismatch.Line, "SALARY") {
		t.Errorf("location: got page %d line %d %q", mismatch.Page, mismatch.LineNum, mismatch.Line)
	}
	if !strings.Contains(err.Error(), "page 1 line 2") {
		t.Errorf("message should name the source line: %v", err)
	}
	if ErrorKind(err) != "reconciliation_mismatch" {
		t.Errorf("kind: got %q", ErrorKind(err))
	}
}

func TestHSBCParser_TotalsWarnings(t *testing.T) {
	pages := samplePages()
	pages[0] = strings.Replace(pages[0], "Payments Out                  40.00", "Payments Out                  41.00", 1)

	info, err := (&HSBCParser{}).Parse(pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Warnings) != 1 || !strings.Contains(info.Warnings[0], "payments out") {
		t.Errorf("warnings: got %v", info.Warnings)
	}
}

func TestHSBCParser_MalformedPage(t *testing.T) {
	pages := samplePages()
	pages[1] = strings.Replace(pages[1], "COUNCIL TAX", "COUNCIL  TAX  REF  9", 1)

	_, err := (&HSBCParser{}).Parse(pages)
	var colErr *ColumnDetectionError
	if !errors.As(err, &colErr) {
		t.Fatalf("got %v, want ColumnDetectionError", err)
	}
	if colErr.Page != 2 {
		t.Errorf("page: got %d, want 2", colErr.Page)
	}
}

func TestHSBCParser_SeveralMalformedPagesReportFirst(t *testing.T) {
	pages := samplePages()
	pages[0] = strings.Replace(pages[0], "LONDON", "LONDON"+strings.Repeat(" ", 70)+"X", 1)
	pages[1] = strings.Replace(pages[1], "COUNCIL TAX", "COUNCIL  TAX  REF  9", 1)

	for i := 0; i < 20; i++ {
		_, err := (&HSBCParser{Workers: 2}).Parse(pages)
		var colErr *ColumnDetectionError
		if !errors.As(err, &colErr) {
			t.Fatalf("got %v, want ColumnDetectionError", err)
		}
		if colErr.Page != 1 {
			t.Fatalf("run %d: page got %d, want 1", i, colErr.Page)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "GYM", 5, "GYM"},
		{"exact", "GYMLT", 5, "GYMLT"},
		{"ascii", "GYM LTD", 3, "GYM..."},
		{"multibyte", "££££££", 4, "££££..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestDebugLines_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("£", 150)

	rows := []models.RawRow{{Page: 1, LineNum: 1, Text: long, Type: "DD"}}
	lines := debugLines(rows)
	if got := utf8.RuneCountInString(lines[0].Text); got != maxDebugText+3 {
		t.Errorf("rune count: got %d, want %d", got, maxDebugText+3)
	}
	if !utf8.ValidString(lines[0].Text) {
		t.Error("debug text is not valid UTF-8")
	}
}

func TestHSBCParser_NoBlocks(t *testing.T) {
	pages := samplePages()
	pages[0] = strings.ReplaceAll(pages[0], "BALANCE CARRIED FORWARD", "")
	pages[1] = strings.ReplaceAll(pages[1], "BALANCE CARRIED FORWARD", "")

	_, err := (&HSBCParser{}).Parse(pages)
	if !errors.Is(err, ErrNoStatementBlocks) {
		t.Fatalf("got %v, want ErrNoStatementBlocks", err)
	}
}

func TestHSBCParser_NoPages(t *testing.T) {
	_, err := (&HSBCParser{}).Parse(nil)
	var metaErr *MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("got %v, want MetadataError", err)
	}
}
