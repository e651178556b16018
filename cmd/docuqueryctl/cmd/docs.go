package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docuquery/internal/app"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect and remove registry records",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), app.Options{SkipEmbeddingHealth: true}, func(a *app.App) error {
			docs, err := a.Documents.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			return printDocuments(cmd, docs)
		})
	},
}

var docsGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), app.Options{SkipEmbeddingHealth: true}, func(a *app.App) error {
			d, err := a.Documents.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get document: %w", err)
			}
			return printDocuments(cmd, []domdoc.Document{d})
		})
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a registry record (vectors stay in the index)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), app.Options{SkipEmbeddingHealth: true}, func(a *app.App) error {
			res, err := a.Documents.Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete document: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"document_id": res.DocumentID,
					"note":        res.Note,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s. %s\n", res.DocumentID, res.Note)
			return nil
		})
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd, docsGetCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

type documentView struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	UserID     string    `json:"user_id"`
	UploadTime time.Time `json:"upload_time"`
	Status     string    `json:"status"`
}

func printDocuments(cmd *cobra.Command, docs []domdoc.Document) error {
	views := make([]documentView, len(docs))
	for i := range docs {
		d := &docs[i]
		views[i] = documentView{
			DocumentID: d.ID(),
			Filename:   d.Filename(),
			ChunkCount: d.ChunkCount(),
			UserID:     d.UserID(),
			UploadTime: d.UploadedAt(),
			Status:     string(d.Status()),
		}
	}

	if outputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), views)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOCUMENT ID\tFILENAME\tCHUNKS\tUSER\tUPLOADED\tSTATUS")
	for _, v := range views {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			v.DocumentID, v.Filename, v.ChunkCount, v.UserID, v.UploadTime.Format(time.RFC3339), v.Status)
	}
	return w.Flush() //nolint:wrapcheck // terminal output
}
