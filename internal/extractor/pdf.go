package extractor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF pulls per-page text from a statement PDF. Pages where native
// extraction yields nothing usable fall back to OCR when the external
// tools are installed; otherwise the page is skipped with a warning so the
// rest of the statement still imports.
func ExtractPDF(path string) (*Document, error) {
	doc := &Document{}

	pages, err := extractNative(path)
	if err != nil {
		// The library could not open the file at all; try pdftotext
		// before declaring the upload unreadable.
		pages, err = extractPdftotext(path)
		if err != nil {
			return nil, fmt.Errorf("extract PDF text: %w", err)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i, text := range pages {
		pageNum := i + 1
		if readableText(text) {
			doc.appendPage(pageNum, text)
			continue
		}

		// Near-empty page: likely scanned. OCR is an optional collaborator.
		ocrText, ocrErr := ocrPage(path, pageNum)
		if ocrErr != nil {
			doc.warnf("page %d: no selectable text and OCR unavailable (%v)", pageNum, ocrErr)
			continue
		}
		if !readableText(ocrText) {
			doc.warnf("page %d: no text recovered, page skipped", pageNum)
			continue
		}
		doc.warnf("page %d: imported using OCR fallback", pageNum)
		doc.appendPage(pageNum, ocrText)
	}

	return doc, nil
}

// extractNative reads page text with the pdf library, reconstructing lines
// row by row.
func extractNative(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

// extractPdftotext shells out to poppler's pdftotext, one page per entry.
func extractPdftotext(path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := pdfPageCount(path)
	if numPages < 1 {
		numPages = 1
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		p := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", p, "-l", p, path, "-").Output()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, string(out))
	}
	return pages, nil
}

// ocrPage renders one PDF page to an image and runs tesseract over it.
// Requires pdftoppm (poppler-utils) and tesseract in PATH.
func ocrPage(path string, page int) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", fmt.Errorf("pdftoppm not installed")
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("tesseract not installed")
	}

	p := strconv.Itoa(page)
	render := exec.Command("pdftoppm", "-r", "300", "-png", "-f", p, "-l", p, path)
	img, err := render.Output()
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w", err)
	}

	// PSM 4: single column of variable-size text, which is what statement
	// pages look like.
	ocr := exec.Command("tesseract", "stdin", "stdout", "-l", "eng", "--psm", "4")
	ocr.Stdin = strings.NewReader(string(img))
	out, err := ocr.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

func pdfPageCount(path string) int {
	out, err := exec.Command("pdfinfo", path).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// readableText reports whether a page's text is worth parsing: enough
// characters and a majority of them plain ASCII. Garbage from unmapped
// font encodings fails the ratio check.
func readableText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= 20 {
		return false
	}
	total, readable := 0, 0
	for _, r := range trimmed {
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
			strings.ContainsRune(".,-/:;()'\"$%&#*", r) {
			readable++
		}
	}
	return float64(readable)/float64(total) > 0.6
}
