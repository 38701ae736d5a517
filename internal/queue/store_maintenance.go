package queue

import (
	"context"
	"time"
)

// ResetStuckSending returns entries left in sending back to pending. Run at
// startup: an entry can only be mid-flight while a sync pass holds it, so
// any sending entry found on open was orphaned by a crash. Retry counts are
// preserved.
func (s *Store) ResetStuckSending(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE entries SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		formatTime(time.Now().UTC()),
		StatusSending,
	)
	if err != nil {
		return 0, Wrap(ErrStorage, "reset stuck sending", "", err)
	}
	return res.RowsAffected()
}

// RetryErrored moves errored entries back to pending for redelivery,
// resetting retry bookkeeping. This is the one externally triggered reset
// the retry counter permits. An empty id list retries every errored entry.
func (s *Store) RetryErrored(ctx context.Context, ids ...string) (int64, error) {
	now := formatTime(time.Now().UTC())
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE entries SET status = ?, retry_count = 0, error_message = NULL, updated_at = ? WHERE status = ?`,
			StatusPending,
			now,
			StatusError,
		)
		if err != nil {
			return 0, Wrap(ErrStorage, "retry errored entries", "", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, StatusError)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE entries SET status = ?, retry_count = 0, error_message = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, Wrap(ErrStorage, "retry selected entries", "", err)
	}
	return res.RowsAffected()
}
