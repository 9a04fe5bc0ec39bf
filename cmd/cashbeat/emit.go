package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:     "emit <topic>",
	Short:   "Inject an event into the daemon's bus",
	GroupID: "system",
	Long: `Publishes an event on the daemon's dispatcher. The payload is read from
--payload, or from stdin when the flag is omitted. The payload must be valid
JSON for the topic's registered type.

Example:
  cashbeat emit transactions.new --payload '{"id":"ev-x","account_id":"acct-operating","amount_cents":1500,"direction":"debit"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		payload, _ := cmd.Flags().GetString("payload")

		var raw json.RawMessage
		if payload != "" {
			raw = json.RawMessage(payload)
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading payload from stdin: %w", err)
			}
			raw = json.RawMessage(data)
		}
		if !json.Valid(raw) {
			return fmt.Errorf("payload is not valid JSON")
		}

		if err := api.PublishEvent(cmd.Context(), topic, raw, "cli"); err != nil {
			return err
		}
		fmt.Printf("published to %s\n", topic)
		return nil
	},
}

func init() {
	emitCmd.Flags().String("payload", "", "event payload as JSON (default: read from stdin)")
}
