package domain

import (
	"context"

	"github.com/google/uuid"
)

// Segmenter exposes the pages of one opened exam document.
type Segmenter interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// RenderPage rasterizes the page at the given zero-based index to PNG bytes.
	RenderPage(index, dpi int) ([]byte, error)

	// ExtractText returns the plain text of the page at the given index.
	ExtractText(index int) (string, error)

	// Close releases the underlying document.
	Close() error
}

// SegmenterOpener opens a source PDF for page-level access. Opening a missing
// or corrupt file yields an unreadable error, which is fatal for the document.
type SegmenterOpener func(path string) (Segmenter, error)

// Extractor converts one page (text + rendered image) into question records.
type Extractor interface {
	Extract(ctx context.Context, docID uuid.UUID, pageIndex int, pageText string, pageImage []byte) ([]QuestionRecord, error)
}

// DocumentRegistry is the persistence collaborator for documents.
type DocumentRegistry interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Save(ctx context.Context, doc *Document) error

	// UpdateStatusIf writes status and lastError only when the document's
	// current status equals expected. It reports whether the write happened.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next DocumentStatus, lastError *string) (bool, error)
}

// QuestionSink is the persistence collaborator for extracted questions.
type QuestionSink interface {
	DeleteByDocument(ctx context.Context, docID uuid.UUID) error
	SaveAll(ctx context.Context, questions []Question) error
}

// PageStore is the blob area holding rendered page images, keyed by document
// id and page index, with write-once semantics.
type PageStore interface {
	Exists(docID uuid.UUID, pageIndex int) bool
	Write(docID uuid.UUID, pageIndex int, png []byte) error
	Read(docID uuid.UUID, pageIndex int) ([]byte, error)
}

// ArtifactSink receives write-only debug artifacts produced while processing.
// Implementations must never fail processing on artifact errors.
type ArtifactSink interface {
	SaveRawResponse(docID uuid.UUID, pageIndex int, raw string)
	SaveFailureLog(docID uuid.UUID, pageIndex, attempt int, err error)
}
