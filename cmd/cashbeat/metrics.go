package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Short:   "Show dispatcher metrics",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := api.Metrics(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(m)
			return nil
		}
		fmt.Printf("Published:   %d\n", m.TotalPublished)
		fmt.Printf("Consumed:    %d\n", m.TotalConsumed)
		fmt.Printf("In flight:   %d\n", m.CurrentDepth)
		fmt.Printf("Avg latency: %.2fms\n", m.AvgLatencyMs)
		fmt.Printf("Throughput:  %d/s\n", m.ThroughputPerSec)
		return nil
	},
}
