package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// newListCmd creates the list subcommand.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents and their processing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			docs, err := d.documents.List(ctx)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No documents uploaded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tFILENAME\tCREATED\tLAST ERROR")
			for _, doc := range docs {
				lastError := ""
				if doc.LastError != nil {
					lastError = *doc.LastError
				}
				status := statusColor(string(doc.Status)).Sprint(doc.Status)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					doc.ID, status, doc.Filename,
					doc.CreatedAt.Format("2006-01-02 15:04"), lastError)
			}
			return w.Flush()
		},
	}
}
