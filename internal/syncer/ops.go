package syncer

import (
	"context"

	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
)

// DeleteEntry removes an entry and every blob it references from
// persistence and drops it from the mirror. Deleting an absent id is a
// no-op. The pass lock guarantees the entry is not mid-delivery while it is
// being torn down.
func (c *Controller) DeleteEntry(ctx context.Context, id string) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	entry, err := c.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		c.mirror.Remove(id)
		return nil
	}

	for _, ref := range entry.BlobRefs {
		if err := c.store.DeleteBlob(ctx, ref); err != nil {
			return err
		}
	}
	if _, err := c.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	c.mirror.Remove(id)
	c.logger.Info("entry deleted",
		logging.String(logging.FieldEntryID, id),
		logging.String(logging.FieldEventType, "entry_deleted"),
	)
	return nil
}

// Retry moves errored entries back to pending with reset bookkeeping and
// kicks a pass so they are reconsidered immediately. An empty id list
// retries every errored entry.
func (c *Controller) Retry(ctx context.Context, ids ...string) (int64, error) {
	c.passMu.Lock()
	updated, err := c.store.RetryErrored(ctx, ids...)
	if err != nil {
		c.passMu.Unlock()
		return 0, err
	}
	if updated > 0 {
		if err := c.reloadMirror(ctx); err != nil {
			c.passMu.Unlock()
			return updated, err
		}
	}
	c.passMu.Unlock()

	if updated > 0 {
		c.logger.Info("errored entries requeued", logging.Int64("entries", updated))
		c.Kick(TriggerManual)
	}
	return updated, nil
}

func (c *Controller) reloadMirror(ctx context.Context) error {
	entries, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	metas := make([]state.EntryMeta, 0, len(entries))
	for _, entry := range entries {
		metas = append(metas, state.MetaFromEntry(entry))
	}
	c.mirror.Replace(metas)
	return nil
}

// PendingCount reports how many entries currently await delivery.
func (c *Controller) PendingCount() int {
	return len(c.mirror.Pending())
}

// ErroredIDs lists entries parked in the error state, oldest first.
func (c *Controller) ErroredIDs() []string {
	var ids []string
	for _, meta := range c.mirror.Snapshot() {
		if meta.Status == queue.StatusError {
			ids = append(ids, meta.ID)
		}
	}
	return ids
}
