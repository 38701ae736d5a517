package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"satchel/internal/delivery"
	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
)

// ProcessPending runs one delivery pass over the pending entries, oldest
// first. Offline is a no-op, not an error. A failure on one entry never
// aborts the rest of the batch; delivery errors are absorbed into retry
// bookkeeping and never returned.
func (c *Controller) ProcessPending(ctx context.Context, trigger Trigger) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	if !c.signal.Online() {
		c.logger.Debug("skipping pass while offline", logging.String(logging.FieldTrigger, string(trigger)))
		return nil
	}

	pending := c.mirror.Pending()
	if len(pending) == 0 {
		return nil
	}

	passLogger := c.logger.With(
		logging.String("pass_id", uuid.NewString()),
		logging.String(logging.FieldTrigger, string(trigger)),
	)
	passLogger.Info("delivery pass started", logging.Int("pending", len(pending)))

	start := time.Now()
	delivered := 0
	for _, meta := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Connectivity can drop mid-pass; stop instead of burning retry
		// attempts on entries that cannot possibly get through.
		if !c.signal.Online() {
			passLogger.Info("connectivity lost mid-pass, deferring remaining entries")
			break
		}
		if c.deliverOne(ctx, passLogger, meta.ID) {
			delivered++
		}
	}

	passLogger.Info("delivery pass finished",
		logging.Int("delivered", delivered),
		logging.Int("remaining", c.mirror.Len()),
		logging.Duration("pass_duration", time.Since(start)),
	)
	return nil
}

// deliverOne attempts delivery of a single entry and reports success. The
// store copy is authoritative: the entry is re-read so a pass never acts on
// stale mirror metadata.
func (c *Controller) deliverOne(ctx context.Context, passLogger *slog.Logger, id string) bool {
	entry, err := c.store.GetEntry(ctx, id)
	if err != nil {
		passLogger.Error("failed to load entry", logging.String(logging.FieldEntryID, id), logging.Error(err))
		return false
	}
	if entry == nil || entry.Status != queue.StatusPending {
		return false
	}

	entryLogger := passLogger.With(logging.String(logging.FieldEntryID, entry.ID))

	if err := c.markSending(ctx, entry); err != nil {
		// The entry stays at its last committed state and is retried on
		// the next trigger.
		entryLogger.Error("failed to mark entry sending", logging.Error(err))
		return false
	}

	submission, err := c.resolveSubmission(ctx, entry)
	if err != nil {
		// A storage failure means the attempt never reached the network;
		// the entry goes back to pending with its retry count untouched
		// so a briefly unavailable store cannot park it in error.
		if errors.Is(err, queue.ErrStorage) {
			c.deferEntry(ctx, entryLogger, entry, err)
			return false
		}
		c.recordFailure(ctx, entryLogger, entry, err)
		return false
	}

	if err := c.client.Submit(ctx, submission); err != nil {
		c.recordFailure(ctx, entryLogger, entry, err)
		return false
	}

	if err := c.finalizeDelivered(ctx, entry); err != nil {
		entryLogger.Error("failed to clean up delivered entry", logging.Error(err))
		return false
	}
	entryLogger.Info("entry delivered",
		logging.Int("attempts", entry.RetryCount+1),
		logging.String(logging.FieldEventType, "entry_delivered"),
	)
	c.notifier.NotifyEntryDelivered(ctx, entry.ID)
	return true
}

func (c *Controller) markSending(ctx context.Context, entry *queue.Entry) error {
	if err := queue.Transition(entry, queue.StatusSending); err != nil {
		return err
	}
	if err := c.store.SaveEntry(ctx, entry); err != nil {
		return err
	}
	c.mirror.Update(state.MetaFromEntry(entry))
	return nil
}

// resolveSubmission loads attachment bytes for every blob reference, in
// reference order. Bytes live only in the returned submission; they never
// touch the mirror.
func (c *Controller) resolveSubmission(ctx context.Context, entry *queue.Entry) (*delivery.Submission, error) {
	attachments := make([]delivery.Attachment, 0, len(entry.BlobRefs))
	for _, ref := range entry.BlobRefs {
		blob, err := c.store.GetBlob(ctx, ref)
		if err != nil {
			return nil, err
		}
		if blob == nil {
			// A missing blob is data loss, not storage downtime; it
			// counts against the retry budget like any other failure.
			return nil, queue.Wrap(queue.ErrNotFound, "resolve attachments", "blob "+ref+" missing", nil)
		}
		attachments = append(attachments, delivery.Attachment{
			ID:       blob.ID,
			FileName: blob.FileName,
			MimeType: blob.MimeType,
			Bytes:    blob.Bytes,
		})
	}
	return &delivery.Submission{
		EntryID:     entry.ID,
		CreatedAt:   entry.CreatedAt,
		Fields:      entry.Fields,
		Attachments: attachments,
	}, nil
}

// finalizeDelivered walks the terminal success path: sent, then gone.
func (c *Controller) finalizeDelivered(ctx context.Context, entry *queue.Entry) error {
	if err := queue.Transition(entry, queue.StatusSent); err != nil {
		return err
	}
	for _, ref := range entry.BlobRefs {
		if err := c.store.DeleteBlob(ctx, ref); err != nil {
			return err
		}
	}
	if _, err := c.store.DeleteEntry(ctx, entry.ID); err != nil {
		return err
	}
	c.mirror.Remove(entry.ID)
	return nil
}

// deferEntry returns a sending entry to pending without touching its retry
// count. The entry's state stays at its last committed value and the whole
// attempt is repeated on the next trigger.
func (c *Controller) deferEntry(ctx context.Context, entryLogger *slog.Logger, entry *queue.Entry, cause error) {
	if err := queue.Transition(entry, queue.StatusPending); err != nil {
		entryLogger.Error("failed to return entry to pending", logging.Error(err))
		return
	}
	if err := c.store.SaveEntry(ctx, entry); err != nil {
		entryLogger.Error("failed to persist deferred entry", logging.Error(err))
		return
	}
	c.mirror.Update(state.MetaFromEntry(entry))
	entryLogger.Warn("storage failure before delivery, deferring entry",
		logging.Int("retry_count", entry.RetryCount),
		logging.Error(cause),
	)
}

// recordFailure applies the retry state machine after a failed attempt:
// below the ceiling the entry returns to pending with an incremented retry
// count; at the ceiling it is parked in the error state with the failure
// message.
func (c *Controller) recordFailure(ctx context.Context, entryLogger *slog.Logger, entry *queue.Entry, cause error) {
	entry.RetryCount++
	message := failureMessage(cause)

	if entry.RetryCount >= c.maxAttempts {
		if err := queue.Transition(entry, queue.StatusError); err != nil {
			entryLogger.Error("failed to park entry in error state", logging.Error(err))
			return
		}
		entry.ErrorMessage = message
		if err := c.store.SaveEntry(ctx, entry); err != nil {
			entryLogger.Error("failed to persist errored entry", logging.Error(err))
			return
		}
		c.mirror.Update(state.MetaFromEntry(entry))
		entryLogger.Warn("entry exhausted delivery attempts",
			logging.Int("retry_count", entry.RetryCount),
			logging.String("last_error", message),
			logging.String(logging.FieldEventType, "entry_errored"),
		)
		c.notifier.NotifyEntryErrored(ctx, entry.ID, message)
		return
	}

	if err := queue.Transition(entry, queue.StatusPending); err != nil {
		entryLogger.Error("failed to return entry to pending", logging.Error(err))
		return
	}
	entry.ErrorMessage = message
	if err := c.store.SaveEntry(ctx, entry); err != nil {
		entryLogger.Error("failed to persist retry bookkeeping", logging.Error(err))
		return
	}
	c.mirror.Update(state.MetaFromEntry(entry))
	entryLogger.Info("delivery attempt failed, will retry",
		logging.Int("retry_count", entry.RetryCount),
		logging.Int("max_attempts", c.maxAttempts),
		logging.Error(cause),
	)
}

func failureMessage(err error) string {
	if err == nil {
		return "delivery failed without error detail"
	}
	return err.Error()
}
