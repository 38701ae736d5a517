package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"satchel/internal/api"
	"satchel/internal/ipc"
	"satchel/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the submission queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueDeleteCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueSweepCommand(ctx))

	return queueCmd
}

var entryListHeaders = []string{"ID", "Status", "Retries", "Attachments", "Created", "Error"}

var entryListAligns = []columnAlignment{
	alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft,
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var entries []ipc.QueueEntry
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					entries = resp.Entries
				} else {
					statuses, err := parseStatuses(listStatuses)
					if err != nil {
						return err
					}
					listed, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					entries = make([]ipc.QueueEntry, 0, len(listed))
					for _, entry := range listed {
						entries = append(entries, api.FromEntry(entry))
					}
				}

				if asJSON {
					return writeJSON(cmd, map[string]any{"entries": entries})
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(entryListHeaders, buildEntryListRows(entries), entryListAligns)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by entry status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <entryID>",
		Short: "Show a single queue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("entry id is required")
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var view ipc.QueueEntry
				if client != nil {
					resp, err := client.QueueDescribe(id)
					if err != nil {
						return err
					}
					view = resp.Entry
				} else {
					entry, err := store.GetEntry(cmd.Context(), id)
					if err != nil {
						return err
					}
					if entry == nil {
						return fmt.Errorf("queue entry %s not found", id)
					}
					view = api.FromEntry(entry)
				}

				if asJSON {
					return writeJSON(cmd, view)
				}
				printEntryDetails(cmd, view)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-status entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var stats map[string]int64
				if client != nil {
					resp, err := client.QueueStats()
					if err != nil {
						return err
					}
					stats = resp.Stats.ByStatus
				} else {
					counts, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					stats = make(map[string]int64, len(counts))
					for status, count := range counts {
						stats[string(status)] = int64(count)
					}
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var health api.QueueHealth
				if client != nil {
					resp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = resp.Health
				} else {
					summary, err := store.Health(cmd.Context())
					if err != nil {
						return err
					}
					health = api.HealthFromSummary(summary)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Healthy: %s\nPending: %d\nSending: %d\nErrored: %d\n",
					yesNo(health.Healthy), health.Pending, health.Sending, health.Errored)
				if health.Detail != "" {
					fmt.Fprintln(out, health.Detail)
				}
				return nil
			})
		},
	}
}

func newQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entryID...>",
		Short: "Delete queue entries and their attachments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.QueueDelete(args)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d entries\n", resp.Removed)
					return nil
				}

				var removed int64
				for _, id := range args {
					ok, err := deleteEntryDirect(cmd, store, id)
					if err != nil {
						return err
					}
					if ok {
						removed++
					}
				}
				fmt.Fprintf(out, "Deleted %d entries\n", removed)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [entryID...]",
		Short: "Reset errored entries back to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.QueueRetry(args)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Reset %d entries for retry\n", resp.Updated)
					return nil
				}

				updated, err := store.RetryErrored(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Reset %d entries for retry\n", updated)
				return nil
			})
		},
	}
}

func newQueueSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove attachment blobs no entry references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				var err error
				if client != nil {
					var resp *ipc.SweepResponse
					resp, err = client.Sweep()
					if err == nil {
						removed = resp.Removed
					}
				} else {
					removed, err = store.SweepOrphanBlobs(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned blobs\n", removed)
				return nil
			})
		},
	}
}

func printEntryDetails(cmd *cobra.Command, entry ipc.QueueEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", entry.ID)
	fmt.Fprintf(out, "Status:      %s\n", formatStatusLabel(entry.Status))
	fmt.Fprintf(out, "Retries:     %d\n", entry.RetryCount)
	fmt.Fprintf(out, "Attachments: %d\n", entry.Attachments)
	fmt.Fprintf(out, "Created:     %s\n", formatDisplayTime(entry.CreatedAt))
	if entry.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:     %s\n", formatDisplayTime(entry.UpdatedAt))
	}
	if entry.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", entry.ErrorMessage)
	}
	if len(entry.Fields) > 0 {
		fmt.Fprintln(out, "Fields:")
		for _, key := range sortedKeys(entry.Fields) {
			fmt.Fprintf(out, "  %s: %s\n", key, entry.Fields[key])
		}
	}
}

// deleteEntryDirect mirrors the daemon's delete semantics for offline use:
// blobs first, then the entry row. Unknown ids succeed silently.
func deleteEntryDirect(cmd *cobra.Command, store *queue.Store, id string) (bool, error) {
	entry, err := store.GetEntry(cmd.Context(), id)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	for _, blobID := range entry.BlobRefs {
		if err := store.DeleteBlob(cmd.Context(), blobID); err != nil {
			return false, err
		}
	}
	return store.DeleteEntry(cmd.Context(), id)
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func parseStatuses(raw []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(raw))
	for _, value := range raw {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, parsed)
	}
	return statuses, nil
}
