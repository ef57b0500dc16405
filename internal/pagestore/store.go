// Package pagestore manages the on-disk artifact tree for documents: the
// uploaded source PDF, rendered page images, and per-page debug artifacts.
//
// Layout under the storage root:
//
//	{root}/{docId}.pdf                    uploaded source document
//	{root}/{docId}/pages/p001.png         rendered page images, write-once
//	{root}/{docId}/raw/...                raw extraction replies
//	{root}/{docId}/logs/...               per-attempt failure logs
package pagestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/sytion06/exambank/internal/domain"
)

var pageFilePattern = regexp.MustCompile(`^p\d{3}\.png$`)

// Store is a filesystem-backed page and source store rooted at a single
// directory. It implements domain.PageStore.
type Store struct {
	root string
}

// NewStore creates the storage root if needed and returns a store over it.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, domain.ValidationError("storage root must not be empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("create storage root %s", root), err)
	}
	return &Store{root: root}, nil
}

// PageFileName returns the stable file name for a zero-based page index,
// numbered from one: p001.png, p002.png, ...
func PageFileName(pageIndex int) string {
	return fmt.Sprintf("p%03d.png", pageIndex+1)
}

// SourcePDFPath returns the path where the document's uploaded PDF lives.
func (s *Store) SourcePDFPath(docID uuid.UUID) string {
	return filepath.Join(s.root, docID.String()+".pdf")
}

// SaveSourcePDF streams an uploaded document to its canonical path.
func (s *Store) SaveSourcePDF(docID uuid.UUID, r io.Reader) (string, error) {
	path := s.SourcePDFPath(docID)
	f, err := os.Create(path)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("create source file %s", path), err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", domain.IOError(fmt.Sprintf("write source file %s", path), err)
	}
	return path, nil
}

func (s *Store) pagesDir(docID uuid.UUID) string {
	return filepath.Join(s.root, docID.String(), "pages")
}

func (s *Store) pagePath(docID uuid.UUID, pageIndex int) string {
	return filepath.Join(s.pagesDir(docID), PageFileName(pageIndex))
}

// Exists reports whether the rendered image for the page is already on disk.
func (s *Store) Exists(docID uuid.UUID, pageIndex int) bool {
	info, err := os.Stat(s.pagePath(docID, pageIndex))
	return err == nil && !info.IsDir()
}

// Write persists a rendered page image. Images are write-once: an existing
// file is left untouched so reprocessing runs reuse earlier renders.
func (s *Store) Write(docID uuid.UUID, pageIndex int, png []byte) error {
	if s.Exists(docID, pageIndex) {
		return nil
	}
	dir := s.pagesDir(docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.IOError(fmt.Sprintf("create pages dir %s", dir), err)
	}
	path := s.pagePath(docID, pageIndex)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return domain.IOError(fmt.Sprintf("write page image %s", path), err)
	}
	return nil
}

// Read returns the rendered image bytes for the page.
func (s *Store) Read(docID uuid.UUID, pageIndex int) ([]byte, error) {
	path := s.pagePath(docID, pageIndex)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFoundError(fmt.Sprintf("page image %s", PageFileName(pageIndex)), err)
		}
		return nil, domain.IOError(fmt.Sprintf("read page image %s", path), err)
	}
	return data, nil
}

// ReadByName returns a page image by its file name, e.g. "p001.png". Names
// outside the pNNN.png shape are rejected so callers can pass request input.
func (s *Store) ReadByName(docID uuid.UUID, fileName string) ([]byte, error) {
	if !pageFilePattern.MatchString(fileName) {
		return nil, domain.ValidationError(fmt.Sprintf("invalid page file name %q", fileName), nil)
	}
	path := filepath.Join(s.pagesDir(docID), fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFoundError(fmt.Sprintf("page image %s", fileName), err)
		}
		return nil, domain.IOError(fmt.Sprintf("read page image %s", path), err)
	}
	return data, nil
}
