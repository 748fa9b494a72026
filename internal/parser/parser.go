package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
)

// Parser defines the interface for bank statement parsers.
type Parser interface {
	// Parse takes raw text from PDF pages and returns structured statement data.
	Parse(pages []string) (*models.StatementInfo, error)
	// BankName returns the human-readable bank name.
	BankName() string
}

// Options configures the parsers returned by New.
type Options struct {
	HSBC HSBCParser
}

// New returns the appropriate parser for the given bank type.
func New(bankType models.BankType, opts Options) (Parser, error) {
	switch bankType {
	case models.BankHSBC:
		p := opts.HSBC
		return &p, nil
	default:
		return nil, fmt.Errorf("unsupported bank type: %q", bankType)
	}
}

// AutoDetect tries to identify the bank from the PDF text content.
func AutoDetect(pages []string) (models.BankType, error) {
	combined := strings.ToLower(strings.Join(pages, "\n"))

	if containsAny(combined, []string{"hsbc", "hsbc.co.uk", "hsbc uk bank"}) {
		return models.BankHSBC, nil
	}

	return "", fmt.Errorf("could not auto-detect bank from statement content; please specify --bank flag")
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
