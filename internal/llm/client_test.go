package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sytion06/exambank/internal/domain"
)

// recordingSink captures artifact writes for assertions.
type recordingSink struct {
	mu       sync.Mutex
	raw      []string
	failures []int // attempt numbers
}

func (s *recordingSink) SaveRawResponse(_ uuid.UUID, _ int, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, raw)
}

func (s *recordingSink) SaveFailureLog(_ uuid.UUID, _, attempt int, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, attempt)
}

func serviceReply(questionsJSON string) string {
	text, _ := json.Marshal(questionsJSON)
	return fmt.Sprintf(`{"output":[{"type":"message","content":[{"type":"output_text","text":%s}]}]}`, text)
}

func newTestClient(baseURL string, sink domain.ArtifactSink) *Client {
	return NewClient(Config{
		BaseURL:        baseURL,
		APIKey:         "sk-test",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		Artifacts:      sink,
		Logger:         zerolog.Nop(),
	})
}

func TestExtractSuccess(t *testing.T) {
	var gotAuth string
	var gotBody request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, serviceReply(`{"questions":[{"numberLabel":"1","stem":"2+2=?","confidence":0.9}]}`))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	client := newTestClient(srv.URL, sink)

	records, err := client.Extract(context.Background(), uuid.New(), 0, "page text", []byte{0x89, 0x50})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2+2=?", records[0].Stem)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	require.Len(t, gotBody.Input, 1)
	require.Len(t, gotBody.Input[0].Content, 2)
	assert.Equal(t, "input_text", gotBody.Input[0].Content[0].Type)
	assert.Contains(t, gotBody.Input[0].Content[0].Text, "page text")
	assert.Equal(t, "input_image", gotBody.Input[0].Content[1].Type)
	assert.Contains(t, gotBody.Input[0].Content[1].ImageURL, "data:image/png;base64,")

	// Raw reply persisted, no failure logs.
	assert.Len(t, sink.raw, 1)
	assert.Empty(t, sink.failures)
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, serviceReply(`{"questions":[{"stem":"ok"}]}`))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	client := newTestClient(srv.URL, sink)

	records, err := client.Extract(context.Background(), uuid.New(), 2, "", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, 3, calls)
	// One failure log per failed attempt, recorded before each sleep.
	assert.Equal(t, []int{1, 2}, sink.failures)
}

func TestExtractExhaustsAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	client := newTestClient(srv.URL, sink)

	_, err := client.Extract(context.Background(), uuid.New(), 0, "", nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2, 3}, sink.failures)
	assert.Empty(t, sink.raw)
}

func TestExtractUnparseablePayloadIsRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, serviceReply("I could not find any JSON on this page."))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	client := newTestClient(srv.URL, sink)

	_, err := client.Extract(context.Background(), uuid.New(), 0, "", nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The raw reply is still persisted on every successful call, even though
	// parsing failed each time.
	assert.Len(t, sink.raw, 3)
}

func TestExtractNothingFoundIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, serviceReply(`{"questions":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &recordingSink{})

	records, err := client.Extract(context.Background(), uuid.New(), 0, "", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:        srv.URL,
		APIKey:         "sk-test",
		MaxAttempts:    3,
		InitialBackoff: time.Hour,
		Artifacts:      &recordingSink{},
		Logger:         zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Extract(ctx, uuid.New(), 0, "", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{Logger: zerolog.Nop()})
	assert.Equal(t, defaultModel, client.model)
	assert.Equal(t, 3, client.maxAttempts)
	assert.Equal(t, 500*time.Millisecond, client.initialBackoff)
}
