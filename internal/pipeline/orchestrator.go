package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/internal/domain"
	"github.com/sytion06/exambank/internal/pagestore"
)

// TriggerOutcome is the result of a processing trigger.
type TriggerOutcome int

const (
	// OutcomeAccepted means a processing run was started.
	OutcomeAccepted TriggerOutcome = iota
	// OutcomeConflict means the document is already being processed.
	OutcomeConflict
	// OutcomeNotFound means no such document exists.
	OutcomeNotFound
)

const noQuestionsMessage = "No questions extracted"

// Config wires a processing service.
type Config struct {
	Registry      domain.DocumentRegistry
	Questions     domain.QuestionSink
	Pages         domain.PageStore
	Extractor     domain.Extractor
	OpenSegmenter domain.SegmenterOpener
	SourcePath    func(docID uuid.UUID) string
	RenderDPI     int
	Logger        zerolog.Logger

	// Progress, when set, is called after each handled page with the number
	// of pages walked so far and the document's page count.
	Progress func(done, total int)
}

// Service drives document processing runs.
type Service struct {
	registry   domain.DocumentRegistry
	questions  domain.QuestionSink
	pages      domain.PageStore
	extractor  domain.Extractor
	open       domain.SegmenterOpener
	sourcePath func(docID uuid.UUID) string
	renderDPI  int
	logger     zerolog.Logger
	progress   func(done, total int)
}

// NewService creates a processing service.
func NewService(cfg Config) *Service {
	dpi := cfg.RenderDPI
	if dpi <= 0 {
		dpi = 150
	}
	return &Service{
		registry:   cfg.Registry,
		questions:  cfg.Questions,
		pages:      cfg.Pages,
		extractor:  cfg.Extractor,
		open:       cfg.OpenSegmenter,
		sourcePath: cfg.SourcePath,
		renderDPI:  dpi,
		logger:     cfg.Logger,
		progress:   cfg.Progress,
	}
}

// BeginProcessing moves the document into processing and starts a detached
// run. Exactly one run can hold the processing status at a time; a second
// trigger while a run is active reports a conflict.
func (s *Service) BeginProcessing(ctx context.Context, docID uuid.UUID) (TriggerOutcome, error) {
	doc, err := s.registry.FindByID(ctx, docID)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeNotFound) {
			return OutcomeNotFound, nil
		}
		return 0, err
	}
	if doc.Status == domain.StatusProcessing {
		return OutcomeConflict, nil
	}

	ok, err := s.registry.UpdateStatusIf(ctx, docID, doc.Status, domain.StatusProcessing, nil)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Another trigger won the transition between our read and write.
		return OutcomeConflict, nil
	}

	go func() {
		// The run outlives the trigger request.
		if err := s.Run(context.Background(), docID); err != nil {
			s.logger.Error().Str("doc_id", docID.String()).Err(err).
				Msg("Processing run failed")
		}
	}()
	return OutcomeAccepted, nil
}

// Run processes a document that is already in the processing status: it clears
// the document's stored questions, then walks the pages up to the answer-key
// boundary, persisting each page's extraction as it lands.
//
// A page that fails after all retry attempts is skipped, its failure noted on
// the document. Only an unreadable source or zero extracted questions across
// all pages fails the whole document.
func (s *Service) Run(ctx context.Context, docID uuid.UUID) error {
	seg, err := s.open(s.sourcePath(docID))
	if err != nil {
		s.finishFailed(docID, err.Error())
		return err
	}
	defer seg.Close()

	pageCount := seg.PageCount()
	s.logger.Info().Str("doc_id", docID.String()).Int("pages", pageCount).
		Msg("Processing started")

	// Earlier results are cleared up front; from here on the stored questions
	// reflect only this run.
	if err := s.questions.DeleteByDocument(ctx, docID); err != nil {
		s.finishFailed(docID, err.Error())
		return err
	}

	total := 0
	var lastPageError *string

	for i := 0; i < pageCount; i++ {
		if ctx.Err() != nil {
			s.finishFailed(docID, ctx.Err().Error())
			return ctx.Err()
		}

		pageQuestions, stop, pageErr := s.processPage(ctx, docID, i, seg)
		if pageErr != nil {
			lastPageError = pageErr
		}
		if len(pageQuestions) > 0 {
			if err := s.questions.SaveAll(ctx, pageQuestions); err != nil {
				s.finishFailed(docID, err.Error())
				return err
			}
			total += len(pageQuestions)
		}

		if s.progress != nil {
			s.progress(i+1, pageCount)
		}
		if stop {
			break
		}
	}

	if total == 0 {
		s.finishFailed(docID, noQuestionsMessage)
		return domain.ExtractionError(noQuestionsMessage, nil)
	}

	ok, err := s.registry.UpdateStatusIf(ctx, docID, domain.StatusProcessing, domain.StatusDone, lastPageError)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn().Str("doc_id", docID.String()).
			Msg("Skipped completion write, document left the processing status")
	}

	s.logger.Info().Str("doc_id", docID.String()).Int("questions", total).
		Msg("Processing finished")
	return nil
}

// processPage handles one page and returns its extracted questions. The stop
// flag is set when the page opens the answer-key section; a failed page
// returns its failure note and lets the walk continue.
func (s *Service) processPage(ctx context.Context, docID uuid.UUID, pageIndex int, seg domain.Segmenter) ([]domain.Question, bool, *string) {
	text, err := seg.ExtractText(pageIndex)
	if err != nil {
		return nil, false, s.notePageFailure(ctx, docID, pageIndex, err)
	}
	if IsAnswerKeyStart(text) {
		s.logger.Info().Str("doc_id", docID.String()).Int("page_index", pageIndex).
			Msg("Answer key boundary reached, stopping page walk")
		return nil, true, nil
	}

	image, err := s.pageImage(docID, pageIndex, seg)
	if err != nil {
		return nil, false, s.notePageFailure(ctx, docID, pageIndex, err)
	}

	records, err := s.extractor.Extract(ctx, docID, pageIndex, text, image)
	if err != nil {
		return nil, false, s.notePageFailure(ctx, docID, pageIndex, err)
	}

	fileName := pagestore.PageFileName(pageIndex)
	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, domain.Question{
			DocumentID:    docID,
			PageIndex:     pageIndex,
			NumberLabel:   rec.NumberLabel,
			Stem:          rec.Stem,
			Choices:       rec.Choices,
			Category:      rec.Category,
			Confidence:    rec.Confidence,
			NeedsReview:   rec.NeedsReview,
			ReviewReason:  rec.ReviewReason,
			HasFigure:     rec.HasFigure,
			PageImageFile: fileName,
		})
	}
	return questions, false, nil
}

// pageImage returns the rendered image for a page, reusing an earlier render
// when one is on disk.
func (s *Service) pageImage(docID uuid.UUID, pageIndex int, seg domain.Segmenter) ([]byte, error) {
	if s.pages.Exists(docID, pageIndex) {
		return s.pages.Read(docID, pageIndex)
	}
	png, err := seg.RenderPage(pageIndex, s.renderDPI)
	if err != nil {
		return nil, err
	}
	if err := s.pages.Write(docID, pageIndex, png); err != nil {
		return nil, err
	}
	return png, nil
}

// notePageFailure records a skipped page on the document right away, so a
// caller polling a document mid-run sees which page went wrong. The write is
// conditioned on the processing status, same as the terminal transitions.
func (s *Service) notePageFailure(ctx context.Context, docID uuid.UUID, pageIndex int, err error) *string {
	msg := fmt.Sprintf("Page %d failed: %v", pageIndex+1, err)
	s.logger.Warn().Str("doc_id", docID.String()).Int("page_index", pageIndex).Err(err).
		Msg("Page skipped after failure")

	ok, uerr := s.registry.UpdateStatusIf(ctx, docID, domain.StatusProcessing, domain.StatusProcessing, &msg)
	if uerr != nil {
		s.logger.Error().Str("doc_id", docID.String()).Err(uerr).
			Msg("Failed to record page failure")
	} else if !ok {
		s.logger.Warn().Str("doc_id", docID.String()).
			Msg("Skipped page-failure write, document left the processing status")
	}
	return &msg
}

// finishFailed moves the document into the failed status, but only while it
// still holds the processing status this run acquired. The write uses a fresh
// context so it lands even when the run's own context was cancelled.
func (s *Service) finishFailed(docID uuid.UUID, message string) {
	ok, err := s.registry.UpdateStatusIf(context.Background(), docID, domain.StatusProcessing, domain.StatusFailed, &message)
	if err != nil {
		s.logger.Error().Str("doc_id", docID.String()).Err(err).
			Msg("Failed to record document failure")
		return
	}
	if !ok {
		s.logger.Warn().Str("doc_id", docID.String()).
			Msg("Skipped failure write, document left the processing status")
	}
}
