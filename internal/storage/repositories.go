package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sytion06/exambank/internal/domain"
)

// DocumentRepository handles document CRUD operations. It implements
// domain.DocumentRegistry.
type DocumentRepository struct {
	db     DB
	driver string
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db DB, driver string) *DocumentRepository {
	return &DocumentRepository{db: db, driver: driver}
}

// Save inserts a new document record.
func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query := rebind(r.driver, `
		INSERT INTO documents (id, filename, status, last_error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		doc.ID.String(), doc.Filename, string(doc.Status), doc.LastError, doc.CreatedAt,
	)
	return err
}

// FindByID retrieves a document by ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := rebind(r.driver, `
		SELECT id, filename, status, last_error, created_at
		FROM documents WHERE id = ?
	`)
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError(fmt.Sprintf("document %s", id), nil)
	}
	return doc, err
}

// List returns all documents, newest first.
func (r *DocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	query := `
		SELECT id, filename, status, last_error, created_at
		FROM documents ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatusIf writes status and lastError only when the stored status still
// equals expected, and reports whether the row changed. Concurrent runs use
// this guard so a stale finisher cannot clobber a fresher terminal state.
func (r *DocumentRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.DocumentStatus, lastError *string) (bool, error) {
	query := rebind(r.driver, `
		UPDATE documents SET status = ?, last_error = ?
		WHERE id = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		string(next), lastError, id.String(), string(expected),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc       domain.Document
		id        string
		status    string
		lastError sql.NullString
	)
	if err := row.Scan(&id, &doc.Filename, &status, &lastError, &doc.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse document id %q: %w", id, err)
	}
	doc.ID = parsed
	doc.Status = domain.DocumentStatus(status)
	if lastError.Valid {
		doc.LastError = &lastError.String
	}
	return &doc, nil
}

// QuestionRepository handles question CRUD operations. It implements
// domain.QuestionSink.
type QuestionRepository struct {
	db     DB
	driver string
}

// NewQuestionRepository creates a new question repository.
func NewQuestionRepository(db DB, driver string) *QuestionRepository {
	return &QuestionRepository{db: db, driver: driver}
}

// DeleteByDocument removes all questions belonging to a document.
func (r *QuestionRepository) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	query := rebind(r.driver, `DELETE FROM questions WHERE document_id = ?`)
	_, err := r.db.ExecContext(ctx, query, docID.String())
	return err
}

// SaveAll inserts a batch of questions.
func (r *QuestionRepository) SaveAll(ctx context.Context, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	query := rebind(r.driver, `
		INSERT INTO questions (id, document_id, page_index, number_label, stem,
			choices, category, confidence, needs_review, review_reason,
			has_figure, page_image_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i := range questions {
		q := &questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		choices, err := marshalChoices(q.Choices)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, query,
			q.ID.String(), q.DocumentID.String(), q.PageIndex, q.NumberLabel, q.Stem,
			choices, q.Category, q.Confidence, q.NeedsReview, q.ReviewReason,
			q.HasFigure, q.PageImageFile, q.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	query := rebind(r.driver, questionSelect+` WHERE id = ?`)
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError(fmt.Sprintf("question %s", id), nil)
	}
	return q, err
}

// ListByDocument returns a document's questions in page order.
func (r *QuestionRepository) ListByDocument(ctx context.Context, docID uuid.UUID) ([]*domain.Question, error) {
	query := rebind(r.driver, questionSelect+`
		WHERE document_id = ? ORDER BY page_index, number_label, id
	`)
	return r.queryQuestions(ctx, query, docID.String())
}

// SearchFilter narrows a question search. Zero values mean "no filter".
type SearchFilter struct {
	Category string
	Query    string
	Limit    int
	Offset   int
}

// Search returns a page of questions matching the filter plus the total match
// count. The text filter is a case-insensitive substring match on the stem.
func (r *QuestionRepository) Search(ctx context.Context, filter SearchFilter) ([]*domain.Question, int, error) {
	where, args := searchPredicate(filter)

	var total int
	countQuery := rebind(r.driver, `SELECT COUNT(*) FROM questions`+where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	pageQuery := rebind(r.driver, questionSelect+where+`
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?
	`)
	questions, err := r.queryQuestions(ctx, pageQuery, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// CountByCategory returns the number of stored questions per category,
// omitting categories with no questions.
func (r *QuestionRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM questions GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

const questionSelect = `
	SELECT id, document_id, page_index, number_label, stem, choices, category,
		confidence, needs_review, review_reason, has_figure, page_image_file, created_at
	FROM questions
`

func searchPredicate(filter SearchFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Query != "" {
		clauses = append(clauses, "LOWER(stem) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *QuestionRepository) queryQuestions(ctx context.Context, query string, args ...interface{}) ([]*domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var (
		q            domain.Question
		id           string
		docID        string
		choices      sql.NullString
		reviewReason sql.NullString
	)
	if err := row.Scan(
		&id, &docID, &q.PageIndex, &q.NumberLabel, &q.Stem, &choices, &q.Category,
		&q.Confidence, &q.NeedsReview, &reviewReason, &q.HasFigure, &q.PageImageFile, &q.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse question id %q: %w", id, err)
	}
	q.ID = parsed
	parsedDoc, err := uuid.Parse(docID)
	if err != nil {
		return nil, fmt.Errorf("parse document id %q: %w", docID, err)
	}
	q.DocumentID = parsedDoc

	if reviewReason.Valid {
		q.ReviewReason = &reviewReason.String
	}
	if choices.Valid && choices.String != "" {
		if err := json.Unmarshal([]byte(choices.String), &q.Choices); err != nil {
			return nil, fmt.Errorf("decode choices for question %s: %w", id, err)
		}
	}
	return &q, nil
}

// marshalChoices encodes the choices map for storage. A nil map stays NULL so
// questions without options round-trip as "no choices" rather than "{}".
func marshalChoices(choices map[string]string) (interface{}, error) {
	if choices == nil {
		return nil, nil
	}
	data, err := json.Marshal(choices)
	if err != nil {
		return nil, fmt.Errorf("encode choices: %w", err)
	}
	return string(data), nil
}
