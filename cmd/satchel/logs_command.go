package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"satchel/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LogTail(ipc.LogTailRequest{
					Offset: -1,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				printLogLines(cmd, resp.Lines)
				if !follow {
					return nil
				}

				offset := resp.Offset
				for {
					next, err := client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Limit:      limit,
						Follow:     true,
						WaitMillis: 1000,
					})
					if err != nil {
						return err
					}
					printLogLines(cmd, next.Lines)
					offset = next.Offset
					select {
					case <-cmd.Context().Done():
						return nil
					default:
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log lines as they arrive")
	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}

func printLogLines(cmd *cobra.Command, lines []string) {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
