package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sytion06/exambank/internal/domain"
	"github.com/sytion06/exambank/internal/storage"
)

// newQuestionsCmd creates the questions subcommand.
func newQuestionsCmd() *cobra.Command {
	var (
		category string
		query    string
		page     int
		size     int
	)

	cmd := &cobra.Command{
		Use:   "questions [docId]",
		Short: "Browse the extracted question bank",
		Long: `Questions lists extracted questions. With a document id it shows that
document's questions in page order; without one it searches the whole bank,
optionally filtered by category or stem text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if len(args) == 1 {
				docID, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid document id %q", args[0])
				}
				questions, err := d.questions.ListByDocument(ctx, docID)
				if err != nil {
					return err
				}
				printQuestionTable(questions)
				return nil
			}

			questions, total, err := d.questions.Search(ctx, storage.SearchFilter{
				Category: category,
				Query:    query,
				Limit:    size,
				Offset:   (page - 1) * size,
			})
			if err != nil {
				return err
			}
			printQuestionTable(questions)
			fmt.Printf("\nShowing %d of %d matching questions (page %d)\n", len(questions), total, page)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&query, "q", "", "filter by stem text")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&size, "size", 20, "results per page")

	cmd.AddCommand(newCategoriesCmd())
	return cmd
}

// newCategoriesCmd creates the questions categories subcommand.
func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show question counts per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			counts, err := d.questions.CountByCategory(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tQUESTIONS")
			for _, name := range domain.Categories {
				fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
			}
			return w.Flush()
		},
	}
}

func printQuestionTable(questions []*domain.Question) {
	if len(questions) == 0 {
		fmt.Println("No questions found.")
		return
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].PageIndex != questions[j].PageIndex {
			return questions[i].PageIndex < questions[j].PageIndex
		}
		return questions[i].NumberLabel < questions[j].NumberLabel
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tNO.\tCATEGORY\tCONF\tFLAGS\tSTEM")
	for _, q := range questions {
		flags := ""
		if q.NeedsReview {
			flags += "R"
		}
		if q.HasFigure {
			flags += "F"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			q.PageIndex+1, q.NumberLabel, q.Category, q.Confidence, flags, truncate(q.Stem, 60))
	}
	w.Flush()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
