// Package llm implements the extraction client: one multimodal call per page,
// bounded retry with exponential backoff, and the response-parsing contract.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/internal/domain"
)

const (
	responsesPath = "/v1/responses"
	defaultModel  = "gpt-5.2"
)

// Config holds extraction client settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxAttempts    int
	InitialBackoff time.Duration
	Timeout        time.Duration
	Artifacts      domain.ArtifactSink
	Logger         zerolog.Logger
}

// Client talks to the external structured-extraction service. One long-lived
// client is shared across all processing runs.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	maxAttempts    int
	initialBackoff time.Duration
	httpClient     *http.Client
	artifacts      domain.ArtifactSink
	logger         zerolog.Logger
}

// NewClient creates a new extraction client.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          model,
		maxAttempts:    maxAttempts,
		initialBackoff: backoff,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		artifacts:      cfg.Artifacts,
		logger:         cfg.Logger,
	}
}

// request is the Responses API payload: one user message carrying the
// instruction, the page's extracted text, and the rendered page image.
type request struct {
	Model string      `json:"model"`
	Input []inputItem `json:"input"`
}

type inputItem struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type inputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Extract processes one page and returns the parsed question records.
// Failed attempts are logged to the artifact sink before each backoff sleep;
// after all attempts the last error propagates as an extraction error.
func (c *Client) Extract(ctx context.Context, docID uuid.UUID, pageIndex int, pageText string, pageImage []byte) ([]domain.QuestionRecord, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		records, err := c.extractOnce(ctx, docID, pageIndex, pageText, pageImage)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if c.artifacts != nil {
			c.artifacts.SaveFailureLog(docID, pageIndex, attempt, err)
		}
		c.logger.Warn().
			Str("doc_id", docID.String()).
			Int("page_index", pageIndex).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Err(err).
			Msg("Extraction attempt failed")

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, domain.ExtractionError(
		fmt.Sprintf("page %d failed after %d attempts", pageIndex+1, c.maxAttempts), lastErr)
}

// extractOnce performs a single service call and parses its reply.
func (c *Client) extractOnce(ctx context.Context, docID uuid.UUID, pageIndex int, pageText string, pageImage []byte) ([]domain.QuestionRecord, error) {
	body, err := json.Marshal(c.buildRequest(pageText, pageImage))
	if err != nil {
		return nil, domain.APIError("marshal extraction request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+responsesPath, bytes.NewReader(body))
	if err != nil {
		return nil, domain.APIError("build extraction request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.APIError("extraction service call", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.APIError("read extraction response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.APIError(fmt.Sprintf("extraction service returned status %d: %s", resp.StatusCode, respBody), nil)
	}

	raw, err := collectOutputText(respBody)
	if err != nil {
		return nil, err
	}

	// Debug artifact, kept even when parsing below fails.
	if c.artifacts != nil {
		c.artifacts.SaveRawResponse(docID, pageIndex, raw)
	}

	return parseQuestions(raw)
}

func (c *Client) buildRequest(pageText string, pageImage []byte) *request {
	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pageImage)

	return &request{
		Model: c.model,
		Input: []inputItem{
			{
				Role: "user",
				Content: []inputContent{
					{
						Type: "input_text",
						Text: extractionInstruction + "\n\nExtracted text (may be empty):\n" + pageText,
					},
					{
						Type:     "input_image",
						ImageURL: imageURL,
						Detail:   "auto",
					},
				},
			},
		},
	}
}
