package extractor

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// defaultCharWidth is used when a page has no measurable glyph widths.
const defaultCharWidth = 5.0

// ExtractText reads a PDF file and returns the text of each page with the
// horizontal layout preserved, so table columns stay aligned in monospaced
// character offsets. It falls back to the external pdftotext command
// (poppler-utils) in -layout mode when the library output is unusable.
func ExtractText(filePath string) ([]string, error) {
	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w (pdftotext: %v)", libErr, popplerErr)
	}
	return nil, fmt.Errorf("no readable text could be extracted from PDF; the file may be image-based or use custom font encodings")
}

// ReadTextFile reads pre-extracted statement text. Pages are separated by
// form feeds, as written by pdftotext.
func ReadTextFile(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", filePath, err)
	}
	return SplitPages(string(data), "\f"), nil
}

// SplitPages splits text on sep and drops pages that are only whitespace.
// Leading spaces of each page are kept because they carry column positions.
func SplitPages(text, sep string) []string {
	var pages []string
	for _, page := range strings.Split(text, sep) {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pages = append(pages, strings.TrimRight(page, "\r\n"))
	}
	return pages
}

// textQuality returns the ratio of basic ASCII readable characters (a-z, A-Z,
// 0-9, common punctuation, whitespace) to total characters. Returns 0.0-1.0.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			if r == ' ' {
				continue
			}
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"£$€%&@#!?+=*", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// isReadableText checks that pages hold enough mostly-ASCII text and at
// least one transaction table marker.
func isReadableText(pages []string) bool {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	if n <= 50 || textQuality(pages) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	return strings.Contains(combined, "balance")
}

// extractWithPdftotext uses pdftotext -layout, one call per page to keep
// page boundaries.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", filePath).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "Pages:") {
				n, parseErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
				if parseErr == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", pageStr, "-l", pageStr, filePath, "-").Output()
		if err != nil {
			continue
		}
		pages = append(pages, SplitPages(string(out), "\f")...)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// extractWithLibrary renders every page from glyph positions.
func extractWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, LayoutText(page.Content().Text))
	}
	return pages, nil
}

// LayoutText turns positioned text pieces into fixed-width lines. Pieces
// are grouped into rows by rounded Y (top to bottom) and placed at the
// character offset X / charWidth, where charWidth is the median glyph
// width of the page. A piece that would overlap earlier text on its row is
// appended after it instead.
func LayoutText(texts []pdf.Text) string {
	type piece struct {
		x float64
		s string
	}

	var minX = math.Inf(1)
	rows := make(map[int][]piece)
	var widths []float64

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		if n := len([]rune(t.S)); t.W > 0 {
			widths = append(widths, t.W/float64(n))
		}
		if t.X < minX {
			minX = t.X
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], piece{x: t.X, s: t.S})
	}
	if len(rows) == 0 {
		return ""
	}

	charWidth := defaultCharWidth
	if len(widths) > 0 {
		sort.Float64s(widths)
		charWidth = widths[len(widths)/2]
	}

	// PDF Y grows upwards
	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		items := rows[y]
		sort.SliceStable(items, func(a, b int) bool { return items[a].x < items[b].x })

		var line []rune
		for _, item := range items {
			col := int(math.Round((item.x - minX) / charWidth))
			for len(line) < col {
				line = append(line, ' ')
			}
			line = append(line, []rune(item.s)...)
		}
		lines = append(lines, strings.TrimRight(string(line), " "))
	}
	return strings.Join(lines, "\n")
}
