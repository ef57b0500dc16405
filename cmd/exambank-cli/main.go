// Package main provides the exam bank CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sytion06/exambank/internal/config"
	"github.com/sytion06/exambank/internal/llm"
	"github.com/sytion06/exambank/internal/observability"
	"github.com/sytion06/exambank/internal/pagestore"
	"github.com/sytion06/exambank/internal/pdf"
	"github.com/sytion06/exambank/internal/pipeline"
	"github.com/sytion06/exambank/internal/storage"
)

var (
	cfgFile string
	noColor bool
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "exambank-cli",
	Short: "Exam bank CLI for processing papers and browsing extracted questions",
	Long: `Exam bank CLI drives the question extraction pipeline from the terminal.

Use this tool to:
- Process an exam PDF end to end without running the API server
- List uploaded documents and their processing status
- Browse and filter the extracted question bank`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Observability.LogLevel
		if !verbose {
			// Keep pipeline logs out of the way of the terminal UI.
			level = "error"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			ServiceName: "exambank-cli",
		})

		if noColor {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newQuestionsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps bundles the wired services a command needs.
type deps struct {
	db        *sql.DB
	documents *storage.DocumentRepository
	questions *storage.QuestionRepository
	store     *pagestore.Store
	pipeline  func(progress func(done, total int)) *pipeline.Service
}

func openDeps(ctx context.Context) (*deps, error) {
	db, err := storage.Open(ctx, cfg.SQLDriver(), cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	store, err := pagestore.NewStore(cfg.Storage.Root)
	if err != nil {
		db.Close()
		return nil, err
	}

	documents := storage.NewDocumentRepository(db, cfg.SQLDriver())
	questions := storage.NewQuestionRepository(db, cfg.SQLDriver())
	artifacts := pagestore.NewArtifacts(cfg.Storage.Root, logger)

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

	return &deps{
		db:        db,
		documents: documents,
		questions: questions,
		store:     store,
		pipeline: func(progress func(done, total int)) *pipeline.Service {
			return pipeline.NewService(pipeline.Config{
				Registry:      documents,
				Questions:     questions,
				Pages:         store,
				Extractor:     extractor,
				OpenSegmenter: pdf.Open,
				SourcePath:    store.SourcePDFPath,
				RenderDPI:     cfg.Extraction.RenderDPI,
				Logger:        logger,
				Progress:      progress,
			})
		},
	}, nil
}

func (d *deps) Close() {
	d.db.Close()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("exambank-cli v0.3.0")
		},
	}
}
