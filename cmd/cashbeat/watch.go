package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulseworks/cashbeat/internal/client"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Tail the live event stream",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topics")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		err := api.StreamEvents(ctx, topics, func(evt client.StreamEvent) error {
			if jsonOutput {
				fmt.Printf(`{"id":%d,"topic":%q,"payload":%s}`+"\n", evt.ID, evt.Topic, evt.Data)
				return nil
			}
			fmt.Printf("%s  %-18s %s\n", time.Now().Format("15:04:05"), evt.Topic, evt.Data)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringSlice("topics", nil, "topic patterns to filter (e.g. transactions.>, alerts.*)")
}
