package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const entryColumns = "id, created_at, updated_at, status, retry_count, fields_json, blob_refs_json, error_message"

// SaveEntry writes an entry with full-replace upsert semantics. All blobs an
// entry references must already be persisted when this is called.
func (s *Store) SaveEntry(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return Wrap(ErrValidation, "save entry", "entry is nil", nil)
	}
	if entry.ID == "" {
		return Wrap(ErrValidation, "save entry", "entry id is empty", nil)
	}

	fieldsJSON, err := json.Marshal(entry.Fields)
	if err != nil {
		return Wrap(ErrStorage, "save entry", "marshal fields", err)
	}
	refsJSON, err := json.Marshal(entry.BlobRefs)
	if err != nil {
		return Wrap(ErrStorage, "save entry", "marshal blob refs", err)
	}

	entry.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO entries (id, created_at, updated_at, status, retry_count, fields_json, blob_refs_json, error_message)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             created_at = excluded.created_at,
             updated_at = excluded.updated_at,
             status = excluded.status,
             retry_count = excluded.retry_count,
             fields_json = excluded.fields_json,
             blob_refs_json = excluded.blob_refs_json,
             error_message = excluded.error_message`,
		entry.ID,
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
		entry.Status,
		entry.RetryCount,
		string(fieldsJSON),
		string(refsJSON),
		nullableString(entry.ErrorMessage),
	)
	if err != nil {
		return Wrap(ErrStorage, "save entry", entry.ID, err)
	}
	return nil
}

// GetEntry fetches an entry by identifier. A missing id returns nil, nil.
func (s *Store) GetEntry(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrStorage, "get entry", id, err)
	}
	return entry, nil
}

// List returns entries filtered by status set (or all entries when no status
// is provided), ordered ascending by creation time. Creation order is the
// only delivery ordering signal.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM entries`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, Wrap(ErrStorage, "list entries", "", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry by identifier. Deleting a missing id is a
// no-op and reports false.
func (s *Store) DeleteEntry(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, Wrap(ErrStorage, "delete entry", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, Wrap(ErrStorage, "delete entry", "rows affected", err)
	}
	return affected > 0, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           string
		createdRaw   string
		updatedRaw   string
		statusStr    string
		retryCount   int
		fieldsJSON   sql.NullString
		refsJSON     sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&createdRaw,
		&updatedRaw,
		&statusStr,
		&retryCount,
		&fieldsJSON,
		&refsJSON,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		Status:       Status(statusStr),
		RetryCount:   retryCount,
		ErrorMessage: errorMessage.String,
	}
	if fieldsJSON.Valid && fieldsJSON.String != "" {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &entry.Fields); err != nil {
			return nil, Wrap(ErrStorage, "scan entry", "unmarshal fields", err)
		}
	}
	if refsJSON.Valid && refsJSON.String != "" {
		if err := json.Unmarshal([]byte(refsJSON.String), &entry.BlobRefs); err != nil {
			return nil, Wrap(ErrStorage, "scan entry", "unmarshal blob refs", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
