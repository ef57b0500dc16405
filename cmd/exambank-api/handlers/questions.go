package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/internal/domain"
	"github.com/sytion06/exambank/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QuestionHandler handles question-bank queries across documents.
type QuestionHandler struct {
	logger    zerolog.Logger
	questions *storage.QuestionRepository
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(logger zerolog.Logger, questions *storage.QuestionRepository) *QuestionHandler {
	return &QuestionHandler{logger: logger, questions: questions}
}

// QuestionDTO represents an extracted question in API responses.
type QuestionDTO struct {
	ID            string            `json:"id"`
	DocumentID    string            `json:"documentId"`
	PageIndex     int               `json:"pageIndex"`
	NumberLabel   string            `json:"numberLabel"`
	Stem          string            `json:"stem"`
	Choices       map[string]string `json:"choices,omitempty"`
	Category      string            `json:"category"`
	Confidence    float64           `json:"confidence"`
	NeedsReview   bool              `json:"needsReview"`
	ReviewReason  *string           `json:"reviewReason,omitempty"`
	HasFigure     bool              `json:"hasFigure"`
	PageImageFile string            `json:"pageImageFile"`
	PageImageURL  string            `json:"pageImageUrl"`
	CreatedAt     string            `json:"createdAt"`
}

func toQuestionDTO(q *domain.Question) QuestionDTO {
	return QuestionDTO{
		ID:            q.ID.String(),
		DocumentID:    q.DocumentID.String(),
		PageIndex:     q.PageIndex,
		NumberLabel:   q.NumberLabel,
		Stem:          q.Stem,
		Choices:       q.Choices,
		Category:      q.Category,
		Confidence:    q.Confidence,
		NeedsReview:   q.NeedsReview,
		ReviewReason:  q.ReviewReason,
		HasFigure:     q.HasFigure,
		PageImageFile: q.PageImageFile,
		PageImageURL:  fmt.Sprintf("/api/documents/%s/pages/%s", q.DocumentID, q.PageImageFile),
		CreatedAt:     q.CreatedAt.Format(time.RFC3339),
	}
}

// Search handles GET /api/questions with optional category, q, page, and
// size query parameters.
func (h *QuestionHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := positiveIntParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page parameter", err.Error())
		return
	}
	size, err := positiveIntParam(r, "size", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid size parameter", err.Error())
		return
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	filter := storage.SearchFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
		Limit:    size,
		Offset:   (page - 1) * size,
	}
	questions, total, err := h.questions.Search(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Question search failed")
		writeError(w, http.StatusInternalServerError, "question search failed", "")
		return
	}

	items := make([]QuestionDTO, 0, len(questions))
	for _, q := range questions {
		items = append(items, toQuestionDTO(q))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// Get handles GET /api/questions/{id}.
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id", raw)
		return
	}

	question, err := h.questions.GetByID(r.Context(), id)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeNotFound) {
			writeError(w, http.StatusNotFound, "question not found", "")
			return
		}
		h.logger.Error().Err(err).Str("question_id", id.String()).Msg("Failed to load question")
		writeError(w, http.StatusInternalServerError, "failed to load question", "")
		return
	}
	writeJSON(w, http.StatusOK, toQuestionDTO(question))
}

// CategoryDTO pairs a category name with its stored question count.
type CategoryDTO struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories handles GET /api/questions/categories, returning every known
// category with its current question count.
func (h *QuestionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.questions.CountByCategory(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count categories")
		writeError(w, http.StatusInternalServerError, "failed to count categories", "")
		return
	}

	items := make([]CategoryDTO, 0, len(domain.Categories))
	for _, name := range domain.Categories {
		items = append(items, CategoryDTO{Name: name, Count: counts[name]})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func positiveIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
