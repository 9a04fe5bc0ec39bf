package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Short:   "Show recent transactions",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		txs, err := api.Transactions(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(txs)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACCOUNT\tMERCHANT\tCATEGORY\tAMOUNT")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tx.Timestamp.Local().Format("15:04:05"),
				tx.AccountID, tx.Merchant, tx.Category, formatCents(tx.AmountCents))
		}
		w.Flush()
		return nil
	},
}

func init() {
	transactionsCmd.Flags().Int("limit", 20, "maximum transactions to show")
}
