package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/insightdelivered/hsbc-statement-parser/internal/api"
	"github.com/insightdelivered/hsbc-statement-parser/internal/config"
	"github.com/insightdelivered/hsbc-statement-parser/internal/extractor"
	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
	"github.com/insightdelivered/hsbc-statement-parser/internal/parser"
	"github.com/insightdelivered/hsbc-statement-parser/internal/writer"
)

const version = "2.0.0"

var (
	warnf  = color.New(color.FgYellow).FprintfFunc()
	errorf = color.New(color.FgRed, color.Bold).FprintfFunc()
	okf    = color.New(color.FgGreen).PrintfFunc()
)

// statementWriter is implemented by every output format.
type statementWriter interface {
	WriteToFile(path string, info *models.StatementInfo) error
}

type options struct {
	bank      models.BankType
	output    string
	format    string
	header    bool
	tolerance decimal.Decimal
	workers   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}

	bankFlag := flag.String("bank", "", "Bank type: hsbc (auto-detected if omitted)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format's extension)")
	formatFlag := flag.String("format", "csv", "Output format: csv or xlsx")
	headerFlag := flag.Bool("header", true, "Include account metadata header rows in the output")
	toleranceFlag := flag.String("tolerance", cfg.BalanceTolerance.String(), "Allowed difference between printed and computed balances")
	workersFlag := flag.Int("workers", cfg.PageWorkers, "Pages processed concurrently")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of converting files")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `HSBC Statement Parser
by Insight Delivered (QEA AutoLens)

Converts HSBC UK bank statements into structured CSV or XLSX files.
Columns are detected per page from text alignment and every running
balance is checked against the printed one.

Usage:
  hsbc-statement-parser [flags] <statement.pdf|statement.txt> [more ...]
  hsbc-statement-parser --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Convert to CSV next to the input
  hsbc-statement-parser statement.pdf

  # Pre-extracted text (pdftotext -layout), pages separated by form feeds
  hsbc-statement-parser statement.txt

  # Excel output, allow a penny of rounding
  hsbc-statement-parser --format=xlsx --tolerance=0.01 statement.pdf

  # Run the web API on $PORT
  hsbc-statement-parser --serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("hsbc-statement-parser v%s\n", version)
		os.Exit(0)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fatalf("Invalid log level: %v\n", err)
	}
	defer logger.Sync()

	tolerance, err := decimal.NewFromString(*toleranceFlag)
	if err != nil || tolerance.IsNegative() {
		fatalf("Invalid tolerance %q\n", *toleranceFlag)
	}
	if *workersFlag < 1 {
		fatalf("--workers must be at least 1\n")
	}

	if *serveFlag {
		if err := serve(cfg, logger, tolerance, *workersFlag); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	opts := options{
		output:    *outputFlag,
		format:    strings.ToLower(*formatFlag),
		header:    *headerFlag,
		tolerance: tolerance,
		workers:   *workersFlag,
	}
	if opts.format != "csv" && opts.format != "xlsx" {
		fatalf("Unknown format %q. Supported: csv, xlsx\n", *formatFlag)
	}
	if *bankFlag != "" {
		switch strings.ToLower(*bankFlag) {
		case "hsbc":
			opts.bank = models.BankHSBC
		default:
			fatalf("Unknown bank type %q. Supported: hsbc\n", *bankFlag)
		}
	}
	if opts.output != "" && flag.NArg() > 1 {
		fatalf("--output can only be used with a single input file\n")
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(inputPath, opts, logger); err != nil {
			errorf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			if kind := parser.ErrorKind(err); kind != "unknown" {
				errorf(os.Stderr, "  Error kind: %s\n", kind)
			}
			os.Exit(1)
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func serve(cfg config.Config, logger *zap.Logger, tolerance decimal.Decimal, workers int) error {
	h := &api.Handler{
		Logger:    logger,
		Version:   version,
		StaticDir: cfg.StaticDir,
		Options: parser.Options{
			HSBC: parser.HSBCParser{Tolerance: tolerance, Workers: workers},
		},
	}
	app := api.NewApp(h, cfg.MaxUploadMB)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("starting server", zap.String("port", cfg.Port), zap.String("static", cfg.StaticDir))
	return app.Listen(":" + cfg.Port)
}

func readPages(inputPath string) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(inputPath)); ext {
	case ".pdf":
		return extractor.ExtractText(inputPath)
	case ".txt":
		return extractor.ReadTextFile(inputPath)
	default:
		return nil, fmt.Errorf("expected .pdf or .txt file, got %q", ext)
	}
}

func processFile(inputPath string, opts options, logger *zap.Logger) error {
	if _, err := os.Stat(inputPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	pages, err := readPages(inputPath)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}
	fmt.Printf("  Extracted text from %d page(s)\n", len(pages))

	bankType := opts.bank
	if bankType == "" {
		if bankType, err = parser.AutoDetect(pages); err != nil {
			return err
		}
		fmt.Printf("  Auto-detected bank: %s\n", bankType)
	}

	p, err := parser.New(bankType, parser.Options{
		HSBC: parser.HSBCParser{
			Logger:    logger.With(zap.String("file", inputPath)),
			Tolerance: opts.tolerance,
			Workers:   opts.workers,
		},
	})
	if err != nil {
		return err
	}
	fmt.Printf("  Using %s parser\n", p.BankName())

	info, err := p.Parse(pages)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	fmt.Printf("  Found %d transaction(s)\n", len(info.Transactions))
	for _, w := range info.Warnings {
		warnf(os.Stdout, "  Warning: %s\n", w)
	}

	outPath := opts.output
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + opts.format
	}

	var w statementWriter = &writer.CSVWriter{IncludeHeader: opts.header}
	if opts.format == "xlsx" {
		w = &writer.XLSXWriter{IncludeHeader: opts.header}
	}
	if err := w.WriteToFile(outPath, info); err != nil {
		return fmt.Errorf("%s write failed: %w", strings.ToUpper(opts.format), err)
	}
	fmt.Printf("  Output: %s\n", outPath)

	if info.AccountHolder != "" {
		fmt.Printf("  Account holder: %s\n", info.AccountHolder)
	}
	if info.AccountNumber != "" {
		fmt.Printf("  Account number: %s\n", info.AccountNumber)
	}
	if info.SortCode != "" {
		fmt.Printf("  Sort code: %s\n", info.SortCode)
	}
	if period := info.StatementPeriod(); period != "" {
		fmt.Printf("  Period: %s\n", period)
	}

	okf("  Done.\n")
	return nil
}

func fatalf(format string, args ...interface{}) {
	errorf(os.Stderr, format, args...)
	os.Exit(1)
}
