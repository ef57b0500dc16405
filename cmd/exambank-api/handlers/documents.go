package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/internal/domain"
	"github.com/sytion06/exambank/internal/pagestore"
	"github.com/sytion06/exambank/internal/pipeline"
	"github.com/sytion06/exambank/internal/storage"
)

// DocumentHandler handles document upload, inspection, and processing.
type DocumentHandler struct {
	logger         zerolog.Logger
	documents      *storage.DocumentRepository
	questions      *storage.QuestionRepository
	pipeline       *pipeline.Service
	store          *pagestore.Store
	maxUploadBytes int64
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(logger zerolog.Logger, documents *storage.DocumentRepository, questions *storage.QuestionRepository, pipe *pipeline.Service, store *pagestore.Store, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		logger:         logger,
		documents:      documents,
		questions:      questions,
		pipeline:       pipe,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// DocumentDTO represents a document in API responses.
type DocumentDTO struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	Status    string  `json:"status"`
	LastError *string `json:"lastError,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func toDocumentDTO(doc *domain.Document) DocumentDTO {
	return DocumentDTO{
		ID:        doc.ID.String(),
		Filename:  doc.Filename,
		Status:    string(doc.Status),
		LastError: doc.LastError,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
}

// Upload handles POST /api/documents. It accepts a multipart form with the
// PDF under the "file" field and registers the document as uploaded.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required", err.Error())
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF uploads are accepted", "")
		return
	}

	doc := domain.NewDocument(filename)
	if _, err := h.store.SaveSourcePDF(doc.ID, file); err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("Failed to store upload")
		writeError(w, http.StatusInternalServerError, "failed to store upload", "")
		return
	}
	if err := h.documents.Save(r.Context(), doc); err != nil {
		h.logger.Error().Err(err).Str("doc_id", doc.ID.String()).Msg("Failed to save document")
		writeError(w, http.StatusInternalServerError, "failed to save document", "")
		return
	}

	h.logger.Info().Str("doc_id", doc.ID.String()).Str("filename", filename).
		Msg("Document uploaded")
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		writeError(w, http.StatusInternalServerError, "failed to list documents", "")
		return
	}
	items := make([]DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentDTO(doc))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Get handles GET /api/documents/{docId}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	docID, ok := parseDocID(w, r)
	if !ok {
		return
	}
	doc, err := h.documents.FindByID(r.Context(), docID)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeNotFound) {
			writeError(w, http.StatusNotFound, "document not found", "")
			return
		}
		h.logger.Error().Err(err).Str("doc_id", docID.String()).Msg("Failed to load document")
		writeError(w, http.StatusInternalServerError, "failed to load document", "")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// Process handles POST /api/documents/{docId}/process. A successful trigger
// answers 202 while extraction continues in the background.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	docID, ok := parseDocID(w, r)
	if !ok {
		return
	}
	outcome, err := h.pipeline.BeginProcessing(r.Context(), docID)
	if err != nil {
		h.logger.Error().Err(err).Str("doc_id", docID.String()).Msg("Failed to trigger processing")
		writeError(w, http.StatusInternalServerError, "failed to trigger processing", "")
		return
	}
	switch outcome {
	case pipeline.OutcomeNotFound:
		writeError(w, http.StatusNotFound, "document not found", "")
	case pipeline.OutcomeConflict:
		writeError(w, http.StatusConflict, "document is already being processed", "")
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{
			"id":     docID.String(),
			"status": string(domain.StatusProcessing),
		})
	}
}

// Questions handles GET /api/documents/{docId}/questions.
func (h *DocumentHandler) Questions(w http.ResponseWriter, r *http.Request) {
	docID, ok := parseDocID(w, r)
	if !ok {
		return
	}
	if _, err := h.documents.FindByID(r.Context(), docID); err != nil {
		if domain.IsType(err, domain.ErrorTypeNotFound) {
			writeError(w, http.StatusNotFound, "document not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load document", "")
		return
	}

	questions, err := h.questions.ListByDocument(r.Context(), docID)
	if err != nil {
		h.logger.Error().Err(err).Str("doc_id", docID.String()).Msg("Failed to list questions")
		writeError(w, http.StatusInternalServerError, "failed to list questions", "")
		return
	}
	items := make([]QuestionDTO, 0, len(questions))
	for _, q := range questions {
		items = append(items, toQuestionDTO(q))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// PageImage handles GET /api/documents/{docId}/pages/{fileName}, serving the
// rendered page image the question records reference.
func (h *DocumentHandler) PageImage(w http.ResponseWriter, r *http.Request) {
	docID, ok := parseDocID(w, r)
	if !ok {
		return
	}
	fileName := chi.URLParam(r, "fileName")

	data, err := h.store.ReadByName(docID, fileName)
	if err != nil {
		switch {
		case domain.IsType(err, domain.ErrorTypeValidation):
			writeError(w, http.StatusBadRequest, "invalid page file name", "")
		case domain.IsType(err, domain.ErrorTypeNotFound):
			writeError(w, http.StatusNotFound, "page image not found", "")
		default:
			h.logger.Error().Err(err).Str("doc_id", docID.String()).Msg("Failed to read page image")
			writeError(w, http.StatusInternalServerError, "failed to read page image", "")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func parseDocID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "docId")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id", raw)
		return uuid.Nil, false
	}
	return id, true
}
