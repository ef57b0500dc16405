// Package main provides the exam bank API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sytion06/exambank/internal/config"
	"github.com/sytion06/exambank/internal/llm"
	"github.com/sytion06/exambank/internal/observability"
	"github.com/sytion06/exambank/internal/pagestore"
	"github.com/sytion06/exambank/internal/pdf"
	"github.com/sytion06/exambank/internal/pipeline"
	"github.com/sytion06/exambank/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("model", cfg.Extraction.Model).
		Msg("Starting exam bank API")

	ctx := context.Background()

	db, err := storage.Open(ctx, cfg.SQLDriver(), cfg.DatabaseDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply schema")
	}

	store, err := pagestore.NewStore(cfg.Storage.Root)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage root")
	}
	artifacts := pagestore.NewArtifacts(cfg.Storage.Root, logger)

	documents := storage.NewDocumentRepository(db, cfg.SQLDriver())
	questions := storage.NewQuestionRepository(db, cfg.SQLDriver())

	extractor := llm.NewClient(llm.Config{
		BaseURL:        cfg.Extraction.BaseURL,
		APIKey:         cfg.Extraction.APIKey,
		Model:          cfg.Extraction.Model,
		MaxAttempts:    cfg.Extraction.MaxAttempts,
		InitialBackoff: cfg.Extraction.InitialBackoff,
		Timeout:        cfg.Extraction.RequestTimeout,
		Artifacts:      artifacts,
		Logger:         logger,
	})

	pipe := pipeline.NewService(pipeline.Config{
		Registry:      documents,
		Questions:     questions,
		Pages:         store,
		Extractor:     extractor,
		OpenSegmenter: pdf.Open,
		SourcePath:    store.SourcePDFPath,
		RenderDPI:     cfg.Extraction.RenderDPI,
		Logger:        logger,
	})

	router := NewRouter(RouterDeps{
		Logger:         logger,
		Documents:      documents,
		Questions:      questions,
		Pipeline:       pipe,
		Store:          store,
		RequestTimeout: cfg.Server.ReadTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
