package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kval/internal/store"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the latest validation report, or recent history with --limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "report: open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "report: migrate store")
		}

		if reportLimit > 1 {
			reports, err := st.ListReports(ctx, reportLimit)
			if err != nil {
				return eris.Wrap(err, "report: list reports")
			}
			for _, stored := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  issues=%d\n",
					stored.CreatedAt.Format("2006-01-02 15:04:05"),
					stored.ID,
					stored.Report.SnapshotID,
					stored.Report.Summary.TotalIssues,
				)
			}
			return nil
		}

		report, err := st.GetLatestReport(ctx)
		if err != nil {
			return eris.Wrap(err, "report: load latest")
		}
		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "report: marshal")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportLimit, "limit", 1, "number of history entries to print (1 prints the full latest report)")
	rootCmd.AddCommand(reportCmd)
}
