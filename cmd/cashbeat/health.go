package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pulseworks/cashbeat/internal/health"
	"github.com/pulseworks/cashbeat/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health [service]",
	Short:   "Show simulated service health",
	GroupID: "views",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			rec, err := api.ServiceHealth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(rec)
				return nil
			}
			printHealthTable([]health.Record{*rec})
			return nil
		}

		resp, err := api.Health(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp)
			return nil
		}
		printHealthTable(resp.Services)
		return nil
	},
}

func printHealthTable(records []health.Record) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tLATENCY\tERRORS\tUPTIME")
	for _, r := range records {
		status := ui.Colorize(ui.StatusColor(string(r.Status)), string(r.Status))
		fmt.Fprintf(w, "%s\t%s\t%.1fms\t%.2f%%\t%s\n",
			r.Name, status, r.LatencyMs, r.ErrorRatePct, r.Uptime)
	}
	w.Flush()
}
