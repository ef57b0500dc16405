package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the processing lifecycle state of a Document.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusDone       DocumentStatus = "DONE"
	StatusFailed     DocumentStatus = "FAILED"
)

// Categories is the closed set of subject tags a Question may carry.
var Categories = []string{
	"Algebra",
	"Trigonometry",
	"Geometry",
	"Vectors",
	"Probability",
	"Calculus",
	"Sequences",
	"Functions",
	"Set Theory",
	"Other",
}

// Document represents one uploaded exam file and its processing status.
type Document struct {
	ID        uuid.UUID
	Filename  string
	Status    DocumentStatus
	LastError *string
	CreatedAt time.Time
}

// NewDocument creates a Document in the UPLOADED state.
func NewDocument(filename string) *Document {
	return &Document{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    StatusUploaded,
		CreatedAt: time.Now(),
	}
}

// Question is one extracted exam item tied to a document and page.
type Question struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	PageIndex     int // 0-based
	NumberLabel   string
	Stem          string
	Choices       map[string]string // nil for free-response items
	Category      string
	Confidence    float64
	NeedsReview   bool
	ReviewReason  *string
	HasFigure     bool
	PageImageFile string
	CreatedAt     time.Time
}

// QuestionRecord is one question as parsed out of an extraction response,
// before it is bound to a document and page.
type QuestionRecord struct {
	NumberLabel  string
	Stem         string
	Choices      map[string]string
	Category     string
	Confidence   float64
	NeedsReview  bool
	ReviewReason *string
	HasFigure    bool
}

// NormalizeCategory maps a free-form category string onto the closed set,
// falling back to "Other" for anything unrecognized.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	for _, c := range Categories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return "Other"
}

// ClampConfidence forces a confidence score into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
