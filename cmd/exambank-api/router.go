// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sytion06/exambank/cmd/exambank-api/handlers"
	"github.com/sytion06/exambank/internal/pagestore"
	"github.com/sytion06/exambank/internal/pipeline"
	"github.com/sytion06/exambank/internal/storage"
)

// RouterDeps carries the wired services the routes need.
type RouterDeps struct {
	Logger         zerolog.Logger
	Documents      *storage.DocumentRepository
	Questions      *storage.QuestionRepository
	Pipeline       *pipeline.Service
	Store          *pagestore.Store
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"exambank"}`))
	})

	documentHandler := handlers.NewDocumentHandler(
		deps.Logger, deps.Documents, deps.Questions, deps.Pipeline, deps.Store, deps.MaxUploadBytes)
	questionHandler := handlers.NewQuestionHandler(deps.Logger, deps.Questions)

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.Upload)
			r.Get("/", documentHandler.List)

			r.Route("/{docId}", func(r chi.Router) {
				r.Get("/", documentHandler.Get)
				r.Post("/process", documentHandler.Process)
				r.Get("/questions", documentHandler.Questions)
				r.Get("/pages/{fileName}", documentHandler.PageImage)
			})
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.Search)
			r.Get("/categories", questionHandler.Categories)
			r.Get("/{id}", questionHandler.Get)
		})
	})

	return r
}
