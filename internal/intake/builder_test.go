package intake_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"satchel/internal/intake"
	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
	"satchel/internal/testsupport"
)

func newBuilder(t *testing.T) (*intake.Builder, *queue.Store, *state.Mirror) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mirror := state.NewMirror()
	return intake.NewBuilder(store, mirror, logging.NewNop()), store, mirror
}

func TestAddEntryPersistsFieldsAndBlobs(t *testing.T) {
	builder, store, mirror := newBuilder(t)
	ctx := context.Background()

	payload := []byte("attachment bytes")
	entry, err := builder.AddEntry(ctx, intake.Request{
		Fields: map[string]string{"title": "Inspection", "site": "north"},
		Attachments: []intake.Attachment{
			{FileName: "photo.jpg", MimeType: "image/jpeg", Bytes: payload},
		},
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if entry.Status != queue.StatusPending {
		t.Fatalf("expected pending entry, got %s", entry.Status)
	}
	if len(entry.BlobRefs) != 1 {
		t.Fatalf("expected one blob reference, got %d", len(entry.BlobRefs))
	}

	stored, err := store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if stored == nil || stored.Fields["site"] != "north" {
		t.Fatalf("entry not persisted: %#v", stored)
	}

	blob, err := store.GetBlob(ctx, entry.BlobRefs[0])
	if err != nil {
		t.Fatalf("GetBlob failed: %v", err)
	}
	if blob == nil || !bytes.Equal(blob.Bytes, payload) {
		t.Fatal("attachment bytes not persisted")
	}
	if blob.FileName != "photo.jpg" || blob.MimeType != "image/jpeg" {
		t.Fatalf("attachment metadata lost: %#v", blob)
	}

	meta, ok := mirror.Get(entry.ID)
	if !ok {
		t.Fatal("entry metadata missing from mirror")
	}
	if len(meta.BlobRefs) != 1 || meta.BlobRefs[0] != entry.BlobRefs[0] {
		t.Fatalf("mirror blob refs wrong: %#v", meta.BlobRefs)
	}
}

func TestAddEntryPreservesAttachmentOrder(t *testing.T) {
	builder, store, _ := newBuilder(t)
	ctx := context.Background()

	entry, err := builder.AddEntry(ctx, intake.Request{
		Fields: map[string]string{"k": "v"},
		Attachments: []intake.Attachment{
			{FileName: "first.bin", Bytes: []byte("first")},
			{FileName: "second.bin", Bytes: []byte("second")},
			{FileName: "third.bin", Bytes: []byte("third")},
		},
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	names := []string{"first.bin", "second.bin", "third.bin"}
	for i, ref := range entry.BlobRefs {
		blob, err := store.GetBlob(ctx, ref)
		if err != nil {
			t.Fatalf("GetBlob failed: %v", err)
		}
		if blob.FileName != names[i] {
			t.Fatalf("position %d: expected %s, got %s", i, names[i], blob.FileName)
		}
	}
}

func TestAddEntryRejectsEmptyFields(t *testing.T) {
	builder, store, mirror := newBuilder(t)
	ctx := context.Background()

	_, err := builder.AddEntry(ctx, intake.Request{})
	if err == nil {
		t.Fatal("expected validation error for empty request")
	}
	if !errors.Is(err, queue.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 || mirror.Len() != 0 {
		t.Fatal("rejected request must not persist anything")
	}
}

func TestAddEntryRejectsEmptyAttachment(t *testing.T) {
	builder, _, _ := newBuilder(t)

	_, err := builder.AddEntry(context.Background(), intake.Request{
		Fields:      map[string]string{"k": "v"},
		Attachments: []intake.Attachment{{FileName: "empty.bin"}},
	})
	if err == nil {
		t.Fatal("expected validation error for empty attachment")
	}
	if !errors.Is(err, queue.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
