// Package extract reads raw document files and produces per-page text.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoExtractableText is returned when a file reads successfully but yields
// no text at all, typically an image-only PDF.
var ErrNoExtractableText = errors.New("no extractable text")

// ErrUnsupportedFileType is returned for file extensions the extractor does
// not handle.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// PageText is the raw text of one page, 1-based.
type PageText struct {
	Number    int
	Text      string
	HasTables bool
	HasImages bool
}

// HashFile returns the SHA-256 hex digest of the file content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Pages extracts per-page text from the file at path. PDFs yield one PageText
// per physical page; plain-text files yield a single synthetic page. Pages
// with no text are omitted. Returns ErrNoExtractableText when nothing at all
// could be read from any page.
func Pages(path string) ([]PageText, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfPages(path)
	case ".txt", ".md":
		return textFilePage(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(path))
	}
}

func pdfPages(path string) ([]PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []PageText
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, PageText{
			Number:    i,
			Text:      text,
			HasTables: looksTabular(text),
			HasImages: false, // text extraction carries no image information
		})
	}

	if len(pages) == 0 {
		return nil, ErrNoExtractableText
	}
	return pages, nil
}

func textFilePage(path string) ([]PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoExtractableText
	}

	return []PageText{{
		Number:    1,
		Text:      text,
		HasTables: looksTabular(text),
	}}, nil
}

// looksTabular guesses at tabular content from column-like whitespace runs.
func looksTabular(text string) bool {
	columnLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "\t") >= 2 || strings.Count(line, "   ") >= 2 {
			columnLines++
		}
		if columnLines >= 3 {
			return true
		}
	}
	return false
}
