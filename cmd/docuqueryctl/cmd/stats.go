package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docuquery/internal/app"
	"github.com/kailas-cloud/docuquery/internal/domain/usage"
)

var statsCheckProvider bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index size, document count and component health",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsCheckProvider, "check-provider", false, "Also call the embedding provider")
	rootCmd.AddCommand(statsCmd)
}

type statsView struct {
	Status          string            `json:"status"`
	VectorStoreSize int               `json:"vector_store_size"`
	DocumentCount   int               `json:"document_count"`
	Checks          map[string]string `json:"checks"`
	DailyTokens     int64             `json:"daily_tokens_used,omitempty"`
	MonthlyTokens   int64             `json:"monthly_tokens_used,omitempty"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	opts := app.Options{SkipEmbeddingHealth: !statsCheckProvider}
	return withApp(cmd.Context(), opts, func(a *app.App) error {
		rep := a.Health.Check(cmd.Context())
		v := statsView{
			Status:          string(rep.Status),
			VectorStoreSize: rep.VectorStoreSize,
			DocumentCount:   rep.DocumentCount,
			Checks:          make(map[string]string, len(rep.Checks)),
		}
		for k, c := range rep.Checks {
			v.Checks[k] = string(c)
		}
		day, month := a.Usage.Report(usage.PeriodDay), a.Usage.Report(usage.PeriodMonth)
		v.DailyTokens, v.MonthlyTokens = day.TokensUsed(), month.TokensUsed()

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, v)
		}
		_, _ = fmt.Fprintf(out, "Status:     %s\nVectors:    %d\nDocuments:  %d\n", v.Status, v.VectorStoreSize, v.DocumentCount)
		if day.Limited() || month.Limited() {
			_, _ = fmt.Fprintf(out, "Tokens:     %d today, %d this month\n", v.DailyTokens, v.MonthlyTokens)
		}
		names := make([]string, 0, len(v.Checks))
		for k := range v.Checks {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(out, "  %-10s %s\n", k, v.Checks[k])
		}
		return nil
	})
}
