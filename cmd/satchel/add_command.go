package main

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"satchel/internal/api"
	"satchel/internal/intake"
	"satchel/internal/ipc"
	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var fieldArgs []string

	cmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Queue a submission with optional file attachments",
		Long: "Queue a new submission. Fields are given as repeated --field key=value\n" +
			"flags and positional arguments are read as file attachments. The entry\n" +
			"is persisted immediately and delivered once the endpoint is reachable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFieldArgs(fieldArgs)
			if err != nil {
				return err
			}
			if len(fields) == 0 && len(args) == 0 {
				return errors.New("nothing to queue: provide at least one --field or attachment")
			}

			attachments, err := readAttachments(args)
			if err != nil {
				return err
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var view ipc.QueueEntry
				if client != nil {
					resp, err := client.Add(ipc.AddRequest{Fields: fields, Attachments: attachments})
					if err != nil {
						return err
					}
					view = resp.Entry
				} else {
					entry, err := addEntryDirect(cmd, store, fields, attachments)
					if err != nil {
						return err
					}
					view = api.FromEntry(entry)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Queued entry %s (%d attachments)\n", view.ID, view.Attachments)
				if client == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running; entry will be delivered after 'satchel start'")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldArgs, "field", "f", nil, "Submission field as key=value (repeatable)")
	return cmd
}

// addEntryDirect queues through the intake builder against a locally opened
// store. Safe only while the daemon is down, which withStore guarantees.
func addEntryDirect(cmd *cobra.Command, store *queue.Store, fields map[string]string, attachments []ipc.AddAttachment) (*queue.Entry, error) {
	req := intake.Request{Fields: fields}
	for _, att := range attachments {
		req.Attachments = append(req.Attachments, intake.Attachment{
			FileName: att.FileName,
			MimeType: att.MimeType,
			Bytes:    att.Bytes,
		})
	}
	builder := intake.NewBuilder(store, state.NewMirror(), logging.NewNop())
	return builder.AddEntry(cmd.Context(), req)
}

func parseFieldArgs(raw []string) (map[string]string, error) {
	fields := make(map[string]string, len(raw))
	for _, arg := range raw {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

func readAttachments(paths []string) ([]ipc.AddAttachment, error) {
	attachments := make([]ipc.AddAttachment, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", path, err)
		}
		attachments = append(attachments, ipc.AddAttachment{
			FileName: filepath.Base(path),
			MimeType: detectMimeType(path, data),
			Bytes:    data,
		})
	}
	return attachments, nil
}

func detectMimeType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
