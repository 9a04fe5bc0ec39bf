package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pulseworks/cashbeat/internal/ui"
)

var anomaliesCmd = &cobra.Command{
	Use:     "anomalies",
	Short:   "Show recent anomaly alerts",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		anomalies, err := api.Anomalies(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(anomalies)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSEVERITY\tTYPE\tACCOUNT\tDESCRIPTION")
		for _, a := range anomalies {
			sev := ui.Colorize(ui.SeverityColor(string(a.Severity)), string(a.Severity))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				a.DetectedAt.Local().Format("15:04:05"),
				sev, a.Type, a.AccountID, a.Description)
		}
		w.Flush()
		return nil
	},
}

func init() {
	anomaliesCmd.Flags().Int("limit", 20, "maximum anomalies to show")
}
