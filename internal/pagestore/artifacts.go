package pagestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/internal/domain"
)

// Artifacts writes extraction debug artifacts under the document's directory.
// It implements domain.ArtifactSink: every write is best-effort, and failures
// are logged but never surfaced to the caller.
type Artifacts struct {
	root   string
	logger zerolog.Logger
}

// NewArtifacts returns an artifact sink over the same storage root the page
// store uses.
func NewArtifacts(root string, logger zerolog.Logger) *Artifacts {
	return &Artifacts{root: root, logger: logger}
}

// SaveRawResponse persists the raw reply text for a page, overwriting any
// earlier attempt's reply.
func (a *Artifacts) SaveRawResponse(docID uuid.UUID, pageIndex int, raw string) {
	dir := filepath.Join(a.root, docID.String(), "raw")
	name := fmt.Sprintf("page_%03d_response.json", pageIndex+1)
	a.write(docID, dir, name, []byte(raw))
}

// SaveFailureLog records one failed extraction attempt for a page.
func (a *Artifacts) SaveFailureLog(docID uuid.UUID, pageIndex, attempt int, err error) {
	dir := filepath.Join(a.root, docID.String(), "logs")
	name := fmt.Sprintf("page_%03d_attempt_%d_%s.txt", pageIndex+1, attempt, time.Now().Format("20060102_150405"))

	errType := "unknown"
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		errType = string(derr.Type)
	}

	body := fmt.Sprintf("document: %s\npage_index: %d\nattempt: %d\nerror_type: %s\nerror: %v\n",
		docID, pageIndex, attempt, errType, err)
	a.write(docID, dir, name, []byte(body))
}

func (a *Artifacts) write(docID uuid.UUID, dir, name string, data []byte) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.logger.Warn().Str("doc_id", docID.String()).Str("dir", dir).Err(err).
			Msg("Failed to create artifact directory")
		return
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn().Str("doc_id", docID.String()).Str("path", path).Err(err).
			Msg("Failed to write artifact")
	}
}
