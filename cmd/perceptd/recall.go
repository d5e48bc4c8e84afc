package main

import (
	"github.com/spf13/cobra"
)

var recallUser string

func init() {
	recallCmd.Flags().StringVar(&recallUser, "user", "", "speaker id (required)")
	_ = recallCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(recallCmd)
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Print a speaker's long-term perception records as JSON",
	Long: `Recall a speaker's records from long-term memory, ranked by similarity to
the query. Without a query every record is returned, oldest first.

Working memory belongs to a running server and is empty here; use
"GET /api/v1/context" against the server for both tiers.

Examples:
  perceptd recall --user alice
  perceptd recall --user alice "the weather"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecall,
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(ctx, cfg, depOptions{memory: true, stderrLogs: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	var query string
	if len(args) == 1 {
		query = args[0]
	}
	recall, err := deps.memory.Context(ctx, recallUser, query)
	if err != nil {
		return err
	}
	return printJSON(cmd, recall)
}
