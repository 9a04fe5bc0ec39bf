package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pulseworks/cashbeat/internal/client"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool

	api *client.Client
)

func defaultHTTPURL() string {
	if s := os.Getenv("CASHBEAT_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "cashbeat <command>",
	Short: "Cash flow dashboard daemon and CLI",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(httpURL, authToken)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "daemon HTTP URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CASHBEAT_AUTH_TOKEN"), "bearer token for the daemon API")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Views
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(anomaliesCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
