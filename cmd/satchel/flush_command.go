package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"satchel/internal/ipc"
)

func newFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Ask the daemon to attempt delivery now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Flush()
				if err != nil {
					return err
				}
				if resp.Requested {
					fmt.Fprintln(cmd.OutOrStdout(), "Delivery pass requested")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Delivery pass already in progress")
				}
				return nil
			})
		},
	}
}
