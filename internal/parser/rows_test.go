package parser

import (
	"errors"
	"testing"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"25.99", "25.99", false},
		{"1,234.56", "1234.56", false},
		{"1,234,567.89", "1234567.89", false},
		{"0.00", "0", false},
		{" 25.99 ", "25.99", false},
		{"25.99D", "-25.99", false},
		{"1,234.56 D", "-1234.56", false},
		{"-25.99", "-25.99", false},
		{"", "", true},
		{"D", "", true},
		{"12.3X", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(t, tt.expected)) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseAmount_MarkerOnlyFlipsSign(t *testing.T) {
	for _, s := range []string{"0.01", "7", "1,000.00", "98,765,432.10", "3.5"} {
		plain, err := parseAmount(s)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", s, err)
		}
		marked, err := parseAmount(s + polarityMarker)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", s+polarityMarker, err)
		}
		if !marked.Equal(plain.Neg()) {
			t.Errorf("parseAmount(%q) = %s, want %s", s+polarityMarker, marked, plain.Neg())
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"01 Jan 24", "2024-01-01", false},
		{"1 Feb 24", "2024-02-01", false},
		{"31 DEC 23", "2023-12-31", false},
		{"15/01/2024", "", true},
		{"Jan 24", "", true},
		{"32 Jan 24", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("got %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func sixColumnLayout(t *testing.T) PageLayout {
	t.Helper()
	layout, err := LabelColumns(1, groundTruth(sixColumns, sixColumnRows), 84, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return layout
}

func TestExtractRow(t *testing.T) {
	layout := sixColumnLayout(t)

	row, err := ExtractRow(layout, tableLine(sixColumns, "01 Jan 24", "DD", "GYM LTD", "20.00", "", "80.00"), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if row.Date == nil || !row.Date.Equal(day(t, "01 Jan 24")) {
		t.Errorf("date: got %v, want 01 Jan 24", row.Date)
	}
	if row.Type != "DD" {
		t.Errorf("type: got %q, want %q", row.Type, "DD")
	}
	if row.Details != "GYM LTD" {
		t.Errorf("details: got %q, want %q", row.Details, "GYM LTD")
	}
	if nullString(row.PaidOut) != "20.00" {
		t.Errorf("paid out: got %s, want 20.00", nullString(row.PaidOut))
	}
	if row.PaidIn.Valid {
		t.Errorf("paid in: got %s, want absent", nullString(row.PaidIn))
	}
	if nullString(row.Balance) != "80.00" {
		t.Errorf("balance: got %s, want 80.00", nullString(row.Balance))
	}
	if row.Page != 1 || row.LineNum != 4 {
		t.Errorf("position: got page %d line %d, want page 1 line 4", row.Page, row.LineNum)
	}
	if row.IsContinuation() {
		t.Error("row with a type must not be a continuation")
	}
}

func TestExtractRow_ContinuationLine(t *testing.T) {
	layout := sixColumnLayout(t)

	row, err := ExtractRow(layout, tableLine(sixColumns, "", "", "LONDON"), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !row.IsContinuation() {
		t.Error("expected continuation row")
	}
	if row.Date != nil {
		t.Errorf("date: got %v, want absent", row.Date)
	}
	if row.Details != "LONDON" {
		t.Errorf("details: got %q, want %q", row.Details, "LONDON")
	}
}

func TestExtractRow_BadDate(t *testing.T) {
	layout := sixColumnLayout(t)

	_, err := ExtractRow(layout, tableLine(sixColumns, "99 Foo 24", "DD", "GYM", "1.00", "", ""), 7)
	var dateErr *DateFormatError
	if !errors.As(err, &dateErr) {
		t.Fatalf("got %v, want DateFormatError", err)
	}
	if dateErr.Value != "99 Foo 24" || dateErr.LineNum != 7 {
		t.Errorf("got value %q line %d, want %q line 7", dateErr.Value, dateErr.LineNum, "99 Foo 24")
	}
}

func TestExtractRow_BadAmount(t *testing.T) {
	layout := sixColumnLayout(t)

	_, err := ExtractRow(layout, tableLine(sixColumns, "", "CR", "REFUND", "", "12.O0", ""), 1)
	var amountErr *AmountFormatError
	if !errors.As(err, &amountErr) {
		t.Fatalf("got %v, want AmountFormatError", err)
	}
	if amountErr.Role != models.RolePaidIn {
		t.Errorf("role: got %q, want paid_in", amountErr.Role)
	}
}

func TestExtractRows_FiveColumnPaidOutPage(t *testing.T) {
	offsets := []int{0, 11, 17, 52, 72}
	rows := [][]string{
		{"03 Jan 24", "DD", "COUNCIL TAX", "10.00", "1,110.00"},
		{"", "VIS", "CAFE", "2.50", ""},
		{"", "", "", "", ""},
	}
	block := blockOf(2, offsets, rows)

	layout, got, err := ExtractRows(block, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.Width != 80 {
		t.Fatalf("width: got %d, want 80", layout.Width)
	}
	if _, ok := layout.Column(models.RolePaidOut); !ok {
		t.Fatal("expected paid out column at 65% of the line")
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d, want 2 (blank line dropped)", len(got))
	}
	for i, r := range got {
		if r.PaidIn.Valid {
			t.Errorf("row %d: paid in should be absent, got %s", i, nullString(r.PaidIn))
		}
		if !r.PaidOut.Valid {
			t.Errorf("row %d: paid out missing", i)
		}
	}
	if got[1].LineNum != 2 {
		t.Errorf("line number: got %d, want 2", got[1].LineNum)
	}
}

func TestExtractRows_ShortLinesArePadded(t *testing.T) {
	block := blockOf(1, sixColumns, sixColumnRows)

	_, rows, err := ExtractRows(block, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows: got %d, want 4", len(rows))
	}
	if rows[3].Details != "LONDON" || rows[3].Balance.Valid {
		t.Errorf("short line: got details %q balance %s", rows[3].Details, nullString(rows[3].Balance))
	}
}
