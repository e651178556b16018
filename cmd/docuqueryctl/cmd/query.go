package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docuquery/internal/app"
	"github.com/kailas-cloud/docuquery/internal/domain/answer"
)

var (
	queryTopK   int
	queryUserID string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieve the closest chunks and ask the language model for a grounded answer.

Examples:
  docuqueryctl query "What is the capital of France?"
  docuqueryctl query "Who owns the budget?" --top-k 5 --user alice -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Chunks to retrieve (defaults to retrieval.top_k)")
	queryCmd.Flags().StringVar(&queryUserID, "user", "", "Only search documents owned by this user")
	rootCmd.AddCommand(queryCmd)
}

type queryView struct {
	Query           string          `json:"query"`
	Answer          string          `json:"answer"`
	Sources         []answer.Source `json:"sources"`
	Confidence      float64         `json:"confidence"`
	ChunksRetrieved int             `json:"chunks_retrieved"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryTopK < 0 {
		return fmt.Errorf("--top-k must not be negative")
	}
	question := strings.Join(args, " ")

	return withApp(cmd.Context(), app.Options{SkipEmbeddingHealth: true}, func(a *app.App) error {
		resp, err := a.Query.Query(cmd.Context(), question, queryTopK, queryUserID)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, queryView{
				Query:           resp.Query,
				Answer:          resp.Answer,
				Sources:         resp.Sources,
				Confidence:      resp.Confidence,
				ChunksRetrieved: resp.ChunksRetrieved,
			})
		}

		_, _ = fmt.Fprintf(out, "%s\n\nConfidence: %.2f  Chunks: %d\n", resp.Answer, resp.Confidence, resp.ChunksRetrieved)
		for i, s := range resp.Sources {
			_, _ = fmt.Fprintf(out, "  [%d] %s #%d (%.2f) %s\n", i+1, s.Filename, s.ChunkIndex, s.SimilarityScore, s.TextPreview)
		}
		return nil
	})
}
