package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sytion06/exambank/internal/domain"
)

func newTestDB(t *testing.T) *DocumentRepository {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return NewDocumentRepository(db, DriverSQLite)
}

func newTestRepos(t *testing.T) (*DocumentRepository, *QuestionRepository) {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return NewDocumentRepository(db, DriverSQLite), NewQuestionRepository(db, DriverSQLite)
}

func TestDocumentSaveAndFind(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	doc := domain.NewDocument("exam_2024.pdf")
	require.NoError(t, repo.Save(ctx, doc))

	got, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "exam_2024.pdf", got.Filename)
	assert.Equal(t, domain.StatusUploaded, got.Status)
	assert.Nil(t, got.LastError)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDocumentFindMissing(t *testing.T) {
	repo := newTestDB(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestDocumentListNewestFirst(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	older := domain.NewDocument("older.pdf")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	newer := domain.NewDocument("newer.pdf")
	require.NoError(t, repo.Save(ctx, newer))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "newer.pdf", docs[0].Filename)
	assert.Equal(t, "older.pdf", docs[1].Filename)
}

func TestUpdateStatusIf(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	doc := domain.NewDocument("exam.pdf")
	require.NoError(t, repo.Save(ctx, doc))

	ok, err := repo.UpdateStatusIf(ctx, doc.ID, domain.StatusUploaded, domain.StatusProcessing, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Guard fails once the stored status has moved on.
	ok, err = repo.UpdateStatusIf(ctx, doc.ID, domain.StatusUploaded, domain.StatusProcessing, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	msg := "Page 3 failed: extraction error"
	ok, err = repo.UpdateStatusIf(ctx, doc.ID, domain.StatusProcessing, domain.StatusFailed, &msg)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, msg, *got.LastError)
}

func TestUpdateStatusIfMissingDocument(t *testing.T) {
	repo := newTestDB(t)

	ok, err := repo.UpdateStatusIf(context.Background(), uuid.New(), domain.StatusUploaded, domain.StatusProcessing, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func seedQuestions(t *testing.T, docs *DocumentRepository, questions *QuestionRepository) *domain.Document {
	t.Helper()
	ctx := context.Background()

	doc := domain.NewDocument("exam.pdf")
	require.NoError(t, docs.Save(ctx, doc))

	reason := "blurry scan"
	require.NoError(t, questions.SaveAll(ctx, []domain.Question{
		{
			DocumentID:    doc.ID,
			PageIndex:     0,
			NumberLabel:   "1",
			Stem:          "Solve x^2 - 4 = 0",
			Choices:       map[string]string{"A": "x = 2", "B": "x = -2", "C": "x = ±2", "D": "no solution"},
			Category:      "Algebra",
			Confidence:    0.93,
			PageImageFile: "p001.png",
		},
		{
			DocumentID:    doc.ID,
			PageIndex:     1,
			NumberLabel:   "2",
			Stem:          "Compute sin(30°)",
			Category:      "Trigonometry",
			Confidence:    0.4,
			NeedsReview:   true,
			ReviewReason:  &reason,
			HasFigure:     true,
			PageImageFile: "p002.png",
		},
	}))
	return doc
}

func TestQuestionRoundTrip(t *testing.T) {
	docs, questions := newTestRepos(t)
	doc := seedQuestions(t, docs, questions)

	got, err := questions.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, doc.ID, first.DocumentID)
	assert.Equal(t, "Solve x^2 - 4 = 0", first.Stem)
	assert.Equal(t, map[string]string{"A": "x = 2", "B": "x = -2", "C": "x = ±2", "D": "no solution"}, first.Choices)
	assert.Nil(t, first.ReviewReason)

	second := got[1]
	assert.Nil(t, second.Choices, "missing choices must round-trip as nil")
	assert.True(t, second.NeedsReview)
	require.NotNil(t, second.ReviewReason)
	assert.Equal(t, "blurry scan", *second.ReviewReason)
	assert.True(t, second.HasFigure)
}

func TestQuestionDeleteByDocument(t *testing.T) {
	docs, questions := newTestRepos(t)
	doc := seedQuestions(t, docs, questions)
	ctx := context.Background()

	require.NoError(t, questions.DeleteByDocument(ctx, doc.ID))

	got, err := questions.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuestionGetByID(t *testing.T) {
	docs, questions := newTestRepos(t)
	doc := seedQuestions(t, docs, questions)
	ctx := context.Background()

	all, err := questions.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)

	got, err := questions.GetByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].Stem, got.Stem)

	_, err = questions.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestQuestionSearch(t *testing.T) {
	docs, questions := newTestRepos(t)
	seedQuestions(t, docs, questions)
	ctx := context.Background()

	byCategory, total, err := questions.Search(ctx, SearchFilter{Category: "Algebra"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Algebra", byCategory[0].Category)

	byText, total, err := questions.Search(ctx, SearchFilter{Query: "SIN"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byText, 1)
	assert.Equal(t, "Trigonometry", byText[0].Category)

	all, total, err := questions.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	paged, total, err := questions.Search(ctx, SearchFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "total counts all matches, not the page")
	assert.Len(t, paged, 1)

	none, total, err := questions.Search(ctx, SearchFilter{Category: "Calculus"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestQuestionCountByCategory(t *testing.T) {
	docs, questions := newTestRepos(t)
	seedQuestions(t, docs, questions)

	counts, err := questions.CountByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Algebra": 1, "Trigonometry": 1}, counts)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?",
		rebind(DriverSQLite, "SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2",
		rebind(DriverPostgres, "SELECT * FROM t WHERE a = ? AND b = ?"))
}
