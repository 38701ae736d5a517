package intake

import (
	"context"
	"log/slog"

	"github.com/jellydator/validation"

	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
)

// Attachment is a raw binary attachment supplied with a submission.
type Attachment struct {
	FileName string
	MimeType string
	Bytes    []byte
}

// Request carries the form fields and attachments for one new entry.
type Request struct {
	Fields      map[string]string
	Attachments []Attachment
}

// Validate rejects requests before any persistence write happens.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Fields, validation.Required.Error("at least one field is required")),
		validation.Field(&r.Attachments, validation.Each(validation.By(validateAttachment))),
	)
}

func validateAttachment(value any) error {
	attachment, ok := value.(Attachment)
	if !ok {
		return validation.NewError("intake_attachment", "unexpected attachment type")
	}
	if len(attachment.Bytes) == 0 {
		return validation.NewError("intake_attachment_empty", "attachment has no content")
	}
	return nil
}

// Builder assembles and persists new queue entries.
//
// The pipeline is strictly ordered: validate, write every blob, write the
// entry referencing them, then append metadata to the mirror. Blobs written
// before a failing step are not rolled back; the orphan sweep reclaims them.
type Builder struct {
	store  *queue.Store
	mirror *state.Mirror
	logger *slog.Logger
}

// NewBuilder constructs a builder over the given store and mirror.
func NewBuilder(store *queue.Store, mirror *state.Mirror, logger *slog.Logger) *Builder {
	return &Builder{
		store:  store,
		mirror: mirror,
		logger: logging.NewComponentLogger(logger, "intake"),
	}
}

// AddEntry validates the request, persists blobs then the entry, and
// appends the entry's metadata to the mirror. Attachment order is preserved
// in the entry's blob references. Only generated identifiers reach the
// mirror; attachment bytes stop at the store.
func (b *Builder) AddEntry(ctx context.Context, req Request) (*queue.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, queue.Wrap(queue.ErrValidation, "add entry", "invalid submission", err)
	}

	blobRefs := make([]string, 0, len(req.Attachments))
	for _, attachment := range req.Attachments {
		id, err := b.store.SaveBlob(ctx, attachment.Bytes, queue.BlobMeta{
			FileName: attachment.FileName,
			MimeType: attachment.MimeType,
		})
		if err != nil {
			return nil, err
		}
		blobRefs = append(blobRefs, id)
	}

	entry := queue.NewEntry(req.Fields, blobRefs)
	if err := b.store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}

	b.mirror.Append(state.MetaFromEntry(entry))
	b.logger.Info("entry queued",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.Int("attachments", len(blobRefs)),
		logging.String(logging.FieldEventType, "entry_queued"),
	)
	return entry, nil
}
