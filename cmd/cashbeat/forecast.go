package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:     "forecast",
	Short:   "Show the latest cash-flow forecast",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := api.Forecast(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(f)
			return nil
		}
		fmt.Printf("Generated: %s (%d-day horizon)\n\n",
			f.GeneratedAt.Local().Format("2006-01-02 15:04:05"), f.HorizonDays)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tPROJECTED\tCONFIDENCE")
		for _, p := range f.Points {
			fmt.Fprintf(w, "%s\t%s\t%.0f%%\n",
				p.Date.Format("2006-01-02"), formatCents(p.ProjectedCents), p.ConfidencePct)
		}
		w.Flush()
		return nil
	},
}
