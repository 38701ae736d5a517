package queue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const blobColumns = "id, bytes, file_name, mime_type, uploaded_at"

// SaveBlob writes attachment bytes under a freshly generated identifier and
// returns it. Each blob write is atomic on its own; cross-table ordering is
// the caller's contract (blobs before the referencing entry).
func (s *Store) SaveBlob(ctx context.Context, data []byte, meta BlobMeta) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO blobs (id, bytes, file_name, mime_type, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		data,
		nullableString(meta.FileName),
		nullableString(meta.MimeType),
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return "", Wrap(ErrStorage, "save blob", meta.FileName, err)
	}
	return id, nil
}

// GetBlob fetches a blob by identifier. A missing id returns nil, nil.
func (s *Store) GetBlob(ctx context.Context, id string) (*Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id)
	blob, err := scanBlob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrStorage, "get blob", id, err)
	}
	return blob, nil
}

// DeleteBlob removes a blob by identifier. Deleting a missing id is a no-op.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return Wrap(ErrStorage, "delete blob", id, err)
	}
	return nil
}

// orphanSweepGrace is how recently uploaded a blob may be and still be
// spared by SweepOrphanBlobs. An intake in flight writes its blobs before
// the entry row that references them, so a blob with no referencing entry
// is not evidence of an orphan until the window has passed.
const orphanSweepGrace = time.Minute

// SweepOrphanBlobs deletes unreferenced blobs older than the grace window.
// Orphans appear only when a crash lands between a blob write and the
// entry write that would have referenced it; they waste space but never
// corrupt correctness.
func (s *Store) SweepOrphanBlobs(ctx context.Context) (int64, error) {
	return s.SweepOrphanBlobsBefore(ctx, time.Now().Add(-orphanSweepGrace))
}

// SweepOrphanBlobsBefore deletes unreferenced blobs uploaded before cutoff.
func (s *Store) SweepOrphanBlobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	refs := make(map[string]struct{})
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		for _, ref := range entry.BlobRefs {
			refs[ref] = struct{}{}
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM blobs WHERE uploaded_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, Wrap(ErrStorage, "sweep orphan blobs", "list blob ids", err)
	}
	defer rows.Close()

	var orphans []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if _, ok := refs[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var removed int64
	for _, id := range orphans {
		if err := s.DeleteBlob(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func scanBlob(scanner interface{ Scan(dest ...any) error }) (*Blob, error) {
	var (
		id          string
		data        []byte
		fileName    sql.NullString
		mimeType    sql.NullString
		uploadedRaw string
	)

	if err := scanner.Scan(&id, &data, &fileName, &mimeType, &uploadedRaw); err != nil {
		return nil, err
	}

	blob := &Blob{
		ID:       id,
		Bytes:    data,
		FileName: fileName.String,
		MimeType: mimeType.String,
	}
	if uploaded, err := parseTimeString(uploadedRaw); err == nil {
		blob.UploadedAt = uploaded
	}
	return blob, nil
}
