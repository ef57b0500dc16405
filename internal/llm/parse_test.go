package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sytion06/exambank/internal/domain"
)

func TestCollectOutputText(t *testing.T) {
	body := []byte(`{
		"output": [
			{"type": "reasoning", "content": [{"type": "reasoning_text", "text": "thinking"}]},
			{"type": "message", "content": [
				{"type": "output_text", "text": "{\"questions\":"},
				{"type": "output_text", "text": "[]}"}
			]}
		]
	}`)

	raw, err := collectOutputText(body)
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, raw)
}

func TestCollectOutputTextIgnoresNonTextSegments(t *testing.T) {
	body := []byte(`{"output":[{"type":"message","content":[{"type":"refusal","text":"no"}]}]}`)

	raw, err := collectOutputText(body)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCollectOutputTextRejectsGarbage(t *testing.T) {
	_, err := collectOutputText([]byte("not json at all"))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeAPI))
}

func TestParseQuestionsDefaulting(t *testing.T) {
	records, err := parseQuestions(`{"questions":[{"stem":"2+2=?"}]}`)
	require.NoError(t, err)
	require.Len(t, records, 1)

	q := records[0]
	assert.Equal(t, "", q.NumberLabel)
	assert.Equal(t, "2+2=?", q.Stem)
	assert.Nil(t, q.Choices)
	assert.Equal(t, "Other", q.Category)
	assert.Equal(t, 0.0, q.Confidence)
	assert.False(t, q.NeedsReview)
	assert.Nil(t, q.ReviewReason)
	assert.False(t, q.HasFigure)
}

func TestParseQuestionsFullRecord(t *testing.T) {
	raw := `{"questions":[{
		"numberLabel": "13",
		"stem": "Solve sin(x) = 1/2 on [0, 2π).",
		"choices": {"A": "π/6 only", "B": "π/6 and 5π/6", "C": "π/3", "D": "none"},
		"category": "trigonometry",
		"confidence": 0.92,
		"needsReview": true,
		"reviewReason": "diagram partially cropped",
		"hasFigure": true
	}]}`

	records, err := parseQuestions(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	q := records[0]
	assert.Equal(t, "13", q.NumberLabel)
	assert.Equal(t, "Trigonometry", q.Category)
	assert.Equal(t, 0.92, q.Confidence)
	assert.True(t, q.NeedsReview)
	require.NotNil(t, q.ReviewReason)
	assert.Equal(t, "diagram partially cropped", *q.ReviewReason)
	assert.True(t, q.HasFigure)
	assert.Equal(t, "π/6 and 5π/6", q.Choices["B"])
}

func TestParseQuestionsMissingArrayIsEmptyResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no questions key", `{}`},
		{"null questions", `{"questions": null}`},
		{"questions not an array", `{"questions": {"oops": true}}`},
		{"empty array", `{"questions": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := parseQuestions(tt.raw)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestParseQuestionsInvalidJSONIsError(t *testing.T) {
	_, err := parseQuestions(`Sure! Here is the JSON you asked for:`)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}

func TestParseQuestionsMalformedItemsIsError(t *testing.T) {
	_, err := parseQuestions(`{"questions": ["just a string", 42]}`)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}

func TestParseQuestionsUnrecognizedCategory(t *testing.T) {
	records, err := parseQuestions(`{"questions":[{"stem":"q","category":"Numerology"}]}`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Other", records[0].Category)
}

func TestParseQuestionsClampsConfidence(t *testing.T) {
	records, err := parseQuestions(`{"questions":[{"stem":"q","confidence":1.7},{"stem":"r","confidence":-0.2}]}`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, records[0].Confidence)
	assert.Equal(t, 0.0, records[1].Confidence)
}
