package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docuquery/internal/app"
	ingestuc "github.com/kailas-cloud/docuquery/internal/usecase/ingest"
)

var ingestUserID string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file> [file...]",
	Short: "Chunk, embed and index local text files",
	Long: `Index one or more text files. Each file becomes one registry record.
The index snapshot is saved after every file.

Examples:
  docuqueryctl ingest notes.md
  docuqueryctl ingest docs/*.txt --user alice`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUserID, "user", "", "Owner recorded on the documents (defaults to anonymous)")
	rootCmd.AddCommand(ingestCmd)
}

type ingestView struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), app.Options{SkipEmbeddingHealth: true}, func(a *app.App) error {
		results := make([]ingestView, 0, len(args))
		for _, path := range args {
			if !a.Config.IsAllowedExtension(path) {
				return fmt.Errorf("%s: file type not allowed", path)
			}
			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if !utf8.Valid(data) {
				return fmt.Errorf("%s: not a UTF-8 text file", path)
			}

			// FilePath stays empty: deleting the record must never touch the caller's file.
			res, err := a.Ingest.Ingest(cmd.Context(), ingestuc.Input{
				Text:     string(data),
				Filename: filepath.Base(path),
				UserID:   ingestUserID,
			})
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			results = append(results, ingestView{
				DocumentID: res.DocumentID,
				Filename:   res.Filename,
				ChunkCount: res.ChunkCount,
				Status:     string(res.Status),
			})
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), results)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DOCUMENT ID\tFILENAME\tCHUNKS\tSTATUS")
		for _, r := range results {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.DocumentID, r.Filename, r.ChunkCount, r.Status)
		}
		return w.Flush() //nolint:wrapcheck // terminal output
	})
}
