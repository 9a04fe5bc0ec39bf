package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Short:   "Show account balances",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := api.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tNAME\tCURRENCY\tBALANCE")
		for _, a := range resp.Accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.AccountID, a.Name, a.Currency, formatCents(a.BalanceCents))
		}
		w.Flush()
		fmt.Printf("\nTotal: %s\n", formatCents(resp.TotalCents))
		return nil
	},
}
