package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insightdelivered/hsbc-statement-parser/internal/extractor"
	"github.com/insightdelivered/hsbc-statement-parser/internal/models"
	"github.com/insightdelivered/hsbc-statement-parser/internal/parser"
	"github.com/insightdelivered/hsbc-statement-parser/internal/writer"
)

// PageBreak separates pages in client-extracted text.
const PageBreak = "\n---PAGE_BREAK---\n"

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success      bool                    `json:"success"`
	Error        string                  `json:"error,omitempty"`
	ErrorKind    string                  `json:"errorKind,omitempty"`
	RequestID    string                  `json:"requestId"`
	Bank         string                  `json:"bank,omitempty"`
	AccountInfo  *AccountInfo            `json:"accountInfo,omitempty"`
	Totals       *models.StatementTotals `json:"totals,omitempty"`
	Transactions []models.Transaction    `json:"transactions"`
	CSV          string                  `json:"csv,omitempty"`
	TotalPaidOut decimal.Decimal         `json:"totalPaidOut"`
	TotalPaidIn  decimal.Decimal         `json:"totalPaidIn"`
	Count        int                     `json:"count"`
	Warnings     []string                `json:"warnings,omitempty"`
	Version      string                  `json:"version,omitempty"`
	DebugLines   []models.DebugLine      `json:"debugLines,omitempty"`
}

// AccountInfo holds account metadata for the JSON response.
type AccountInfo struct {
	Holder   string        `json:"holder,omitempty"`
	Number   string        `json:"number,omitempty"`
	SortCode string        `json:"sortCode,omitempty"`
	Period   string        `json:"period,omitempty"`
	Sheets   models.Sheets `json:"sheets"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Logger    *zap.Logger
	Options   parser.Options
	Version   string
	StaticDir string
}

// NewApp builds a fiber app with middleware and all routes registered.
// Uploads larger than maxUploadMB are rejected.
func NewApp(h *Handler, maxUploadMB int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "hsbc-statement-parser",
		BodyLimit:             maxUploadMB << 20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.Register(app)
	return app
}

// Register sets up the HTTP routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/convert", h.HandleConvert)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Serve the web UI. Unknown paths get index.html so client routing works.
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

// HandleConvert parses an uploaded statement. Pages come from the
// extractedText form field when the client already extracted them,
// otherwise from the uploaded PDF in the file field.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	start := time.Now()
	requestID := uuid.NewString()
	log := h.logger().With(zap.String("requestId", requestID))

	fail := func(status int, kind, msg string) error {
		statementsParsed.WithLabelValues("error", kind).Inc()
		convertDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Warn("convert failed", zap.Int("status", status), zap.String("kind", kind), zap.String("error", msg))
		return c.Status(status).JSON(ConvertResponse{
			Success:      false,
			Error:        msg,
			ErrorKind:    kind,
			RequestID:    requestID,
			Transactions: []models.Transaction{},
			Version:      h.Version,
		})
	}

	includeHeader := c.FormValue("header") != "false"

	pages := extractor.SplitPages(c.FormValue("extractedText"), PageBreak)
	if len(pages) == 0 {
		var err error
		pages, err = h.extractUpload(c)
		if err != nil {
			var reqErr *fiber.Error
			if errors.As(err, &reqErr) {
				return fail(reqErr.Code, "request", reqErr.Message)
			}
			return fail(fiber.StatusUnprocessableEntity, "extraction", err.Error())
		}
	}

	bankType, err := resolveBank(c.FormValue("bank"), pages)
	if err != nil {
		var reqErr *fiber.Error
		if errors.As(err, &reqErr) {
			return fail(reqErr.Code, "request", reqErr.Message)
		}
		return fail(fiber.StatusUnprocessableEntity, "detection", err.Error())
	}

	opts := h.Options
	opts.HSBC.Logger = log
	p, err := parser.New(bankType, opts)
	if err != nil {
		return fail(fiber.StatusInternalServerError, "unknown", err.Error())
	}

	info, err := p.Parse(pages)
	if err != nil {
		return fail(fiber.StatusUnprocessableEntity, parser.ErrorKind(err), fmt.Sprintf("Parsing failed: %v", err))
	}

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: includeHeader}
	if err := csvWriter.Write(&csvBuf, info); err != nil {
		return fail(fiber.StatusInternalServerError, "unknown", fmt.Sprintf("CSV generation failed: %v", err))
	}

	// nil marshals to JSON null, not []
	txns := info.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}

	resp := ConvertResponse{
		Success:      true,
		RequestID:    requestID,
		Bank:         string(bankType),
		Totals:       &info.Totals,
		Transactions: txns,
		CSV:          csvBuf.String(),
		TotalPaidOut: decimal.Zero,
		TotalPaidIn:  decimal.Zero,
		Count:        len(txns),
		Warnings:     info.Warnings,
		Version:      h.Version,
		DebugLines:   info.DebugLines,
	}
	for _, txn := range txns {
		if txn.PaidOut.Valid {
			resp.TotalPaidOut = resp.TotalPaidOut.Add(txn.PaidOut.Decimal)
		}
		if txn.PaidIn.Valid {
			resp.TotalPaidIn = resp.TotalPaidIn.Add(txn.PaidIn.Decimal)
		}
	}

	if info.AccountHolder != "" || info.AccountNumber != "" || info.SortCode != "" || info.StatementPeriod() != "" {
		resp.AccountInfo = &AccountInfo{
			Holder:   info.AccountHolder,
			Number:   info.AccountNumber,
			SortCode: info.SortCode,
			Period:   info.StatementPeriod(),
			Sheets:   info.Sheets,
		}
	}

	statementsParsed.WithLabelValues("ok", "").Inc()
	transactionsParsed.Add(float64(len(txns)))
	convertDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	log.Info("converted statement",
		zap.String("bank", string(bankType)),
		zap.Int("pages", len(pages)),
		zap.Int("transactions", len(txns)),
		zap.Int("warnings", len(info.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return c.JSON(resp)
}

// extractUpload saves the uploaded PDF to a temp file and extracts its pages.
// Request problems are returned as *fiber.Error.
func (h *Handler) extractUpload(c *fiber.Ctx) ([]string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'extractedText'.")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmpFile, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to create temp file.")
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fh, tmpPath); err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	pages, err := extractor.ExtractText(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}
	return pages, nil
}

func resolveBank(param string, pages []string) (models.BankType, error) {
	switch strings.ToLower(param) {
	case "":
		return parser.AutoDetect(pages)
	case "hsbc":
		return models.BankHSBC, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Unknown bank: %q. Use hsbc.", param))
	}
}
