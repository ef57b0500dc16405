package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sytion06/exambank/internal/domain"
)

// The extraction service replies with a free-form message envelope; only the
// output_text segments carry the JSON we asked for. This scanning heuristic is
// kept behind the client so it can be swapped if the service contract changes.

type responseEnvelope struct {
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type    string           `json:"type"`
	Content []contentSegment `json:"content"`
}

type contentSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// collectOutputText concatenates all output_text segments of the raw service
// reply into one JSON string.
func collectOutputText(body []byte) (string, error) {
	var envelope responseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", domain.APIError("decode extraction response envelope", err)
	}

	var sb strings.Builder
	for _, item := range envelope.Output {
		for _, segment := range item.Content {
			if segment.Type == "output_text" {
				sb.WriteString(segment.Text)
			}
		}
	}
	return sb.String(), nil
}

// questionPayload mirrors the JSON schema requested in the instruction.
// Pointer fields distinguish absent/null values for defaulting.
type questionPayload struct {
	NumberLabel  *string           `json:"numberLabel"`
	Stem         *string           `json:"stem"`
	Choices      map[string]string `json:"choices"`
	Category     *string           `json:"category"`
	Confidence   *float64          `json:"confidence"`
	NeedsReview  *bool             `json:"needsReview"`
	ReviewReason *string           `json:"reviewReason"`
	HasFigure    *bool             `json:"hasFigure"`
}

// parseQuestions parses the concatenated output text into question records.
// A missing or non-array "questions" field means the page yielded nothing,
// which is a valid outcome, not a failure. Unparseable JSON is an error and
// gets retried by the caller.
func parseQuestions(raw string) ([]domain.QuestionRecord, error) {
	var root struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, domain.ExtractionError("response text is not valid JSON", err)
	}

	// A missing, null or non-array field means nothing was found. An actual
	// array whose items do not decode is a bad reply and worth a retry.
	questions := bytes.TrimSpace(root.Questions)
	if len(questions) == 0 || !bytes.HasPrefix(questions, []byte("[")) {
		return nil, nil
	}
	var payloads []questionPayload
	if err := json.Unmarshal(questions, &payloads); err != nil {
		return nil, domain.ExtractionError("questions array has malformed items", err)
	}

	records := make([]domain.QuestionRecord, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, domain.QuestionRecord{
			NumberLabel:  stringOr(p.NumberLabel, ""),
			Stem:         stringOr(p.Stem, ""),
			Choices:      p.Choices,
			Category:     domain.NormalizeCategory(stringOr(p.Category, "Other")),
			Confidence:   domain.ClampConfidence(floatOr(p.Confidence, 0)),
			NeedsReview:  boolOr(p.NeedsReview, false),
			ReviewReason: p.ReviewReason,
			HasFigure:    boolOr(p.HasFigure, false),
		})
	}
	return records, nil
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func floatOr(f *float64, fallback float64) float64 {
	if f == nil {
		return fallback
	}
	return *f
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
