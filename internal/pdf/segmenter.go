// Package pdf adapts go-fitz into the page segmenter used by the pipeline.
package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/sytion06/exambank/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// CheckSource verifies that path points to a readable PDF before any heavier
// work. Uploaded exams are often renamed scans or exports, so the file header
// is sniffed in addition to the extension.
func CheckSource(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("source path must not be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("no such file: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot stat %s", path), err)
	}
	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("%s is a directory", path), nil)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return domain.ValidationError(fmt.Sprintf("%s is not a .pdf file", path), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return domain.ValidationError(fmt.Sprintf("%s does not start with a PDF header", path), err)
	}
	return nil
}

// Segmenter exposes page-level access to one open PDF document.
type Segmenter struct {
	doc *fitz.Document
}

// Open validates and opens a source PDF. A missing or corrupt file yields an
// unreadable error, which is fatal for the whole document.
func Open(path string) (domain.Segmenter, error) {
	if err := CheckSource(path); err != nil {
		return nil, domain.UnreadableError(fmt.Sprintf("source file %s", path), err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.UnreadableError(fmt.Sprintf("open PDF %s", path), err)
	}

	return &Segmenter{doc: doc}, nil
}

// PageCount returns the number of pages in the document.
func (s *Segmenter) PageCount() int {
	return s.doc.NumPage()
}

// RenderPage rasterizes the page at the given zero-based index into PNG bytes.
func (s *Segmenter) RenderPage(index, dpi int) ([]byte, error) {
	img, err := s.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("render page %d", index+1), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, domain.IOError(fmt.Sprintf("encode page %d as PNG", index+1), err)
	}
	return buf.Bytes(), nil
}

// ExtractText returns the plain text of the page at the given zero-based index.
func (s *Segmenter) ExtractText(index int) (string, error) {
	text, err := s.doc.Text(index)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("extract text of page %d", index+1), err)
	}
	return text, nil
}

// Close releases the underlying document.
func (s *Segmenter) Close() error {
	return s.doc.Close()
}
