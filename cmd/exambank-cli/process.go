package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sytion06/exambank/internal/domain"
	"github.com/sytion06/exambank/internal/pdf"
)

// newProcessCmd creates the process subcommand.
func newProcessCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "process <file.pdf>",
		Short: "Extract questions from an exam PDF",
		Long: `Process registers the PDF as a document, walks its pages up to the
answer-key boundary, extracts questions from each page, and stores them in
the question bank. The document and its rendered page images stay available
to the API afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return runProcess(ctx, args[0])
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall processing timeout")
	return cmd
}

func runProcess(ctx context.Context, path string) error {
	if err := pdf.CheckSource(path); err != nil {
		return err
	}

	setup := NewSpinner("Preparing document...")
	setup.Start()

	d, err := openDeps(ctx)
	if err != nil {
		setup.Stop()
		return err
	}
	defer d.Close()

	doc := domain.NewDocument(filepath.Base(path))

	source, err := os.Open(path)
	if err != nil {
		setup.Stop()
		return fmt.Errorf("open %s: %w", path, err)
	}
	_, err = d.store.SaveSourcePDF(doc.ID, source)
	source.Close()
	if err != nil {
		setup.Stop()
		return err
	}

	if err := d.documents.Save(ctx, doc); err != nil {
		setup.Stop()
		return err
	}
	ok, err := d.documents.UpdateStatusIf(ctx, doc.ID, domain.StatusUploaded, domain.StatusProcessing, nil)
	setup.Stop()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("document %s is not in the uploaded state", doc.ID)
	}

	fmt.Printf("Processing %s (document %s)\n", filepath.Base(path), doc.ID)

	var bar = NewPageProgressBar(1, "extracting")
	service := d.pipeline(func(done, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(done)
	})

	start := time.Now()
	runErr := service.Run(ctx, doc.ID)
	_ = bar.Finish()

	final, err := d.documents.FindByID(ctx, doc.ID)
	if err != nil {
		return err
	}

	if runErr != nil || final.Status != domain.StatusDone {
		if final.LastError != nil {
			errorf("Processing failed: %s", *final.LastError)
		} else {
			errorf("Processing failed: %v", runErr)
		}
		return fmt.Errorf("document %s failed", doc.ID)
	}

	questions, err := d.questions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	successf("Extracted %d questions in %s", len(questions), time.Since(start).Round(time.Second))
	if final.LastError != nil {
		warnf("Some pages were skipped: %s", *final.LastError)
	}

	printCategorySummary(questions)
	fmt.Printf("\nBrowse with: exambank-cli questions %s\n", doc.ID)
	return nil
}

func printCategorySummary(questions []*domain.Question) {
	counts := make(map[string]int)
	review := 0
	for _, q := range questions {
		counts[q.Category]++
		if q.NeedsReview {
			review++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tQUESTIONS")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	w.Flush()

	if review > 0 {
		warnf("%d questions flagged for review", review)
	}
}
