package syncer_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"satchel/internal/config"
	"satchel/internal/connectivity"
	"satchel/internal/delivery"
	"satchel/internal/intake"
	"satchel/internal/logging"
	"satchel/internal/queue"
	"satchel/internal/state"
	"satchel/internal/syncer"
	"satchel/internal/testsupport"
)

// fakeClient records submissions and fails on request.
type fakeClient struct {
	mu          sync.Mutex
	submissions []*delivery.Submission
	failures    int
	failAlways  bool
	onSubmit    func(sub *delivery.Submission)
}

func (f *fakeClient) Submit(ctx context.Context, sub *delivery.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSubmit != nil {
		f.onSubmit(sub)
	}
	if f.failAlways || f.failures > 0 {
		if f.failures > 0 {
			f.failures--
		}
		return errors.New("endpoint unavailable")
	}
	f.submissions = append(f.submissions, sub)
	return nil
}

func (f *fakeClient) delivered() []*delivery.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*delivery.Submission(nil), f.submissions...)
}

type harness struct {
	cfg        *config.Config
	store      *queue.Store
	mirror     *state.Mirror
	client     *fakeClient
	signal     *connectivity.Static
	controller *syncer.Controller
	builder    *intake.Builder
}

func newHarness(t *testing.T, online bool, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	mirror := state.NewMirror()
	client := &fakeClient{}
	signal := connectivity.NewStatic(online)
	controller := syncer.New(cfg, store, mirror, client, signal, nil, logging.NewNop())
	return &harness{
		cfg:        cfg,
		store:      store,
		mirror:     mirror,
		client:     client,
		signal:     signal,
		controller: controller,
		builder:    intake.NewBuilder(store, mirror, logging.NewNop()),
	}
}

func (h *harness) add(t *testing.T, fields map[string]string) *queue.Entry {
	t.Helper()
	entry, err := h.builder.AddEntry(context.Background(), intake.Request{Fields: fields})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	return entry
}

func TestProcessPendingDeliversOldestFirst(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	// Stagger creation times so ordering is unambiguous.
	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		entry := queue.NewEntry(map[string]string{"seq": string(rune('a' + i))}, nil)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := h.store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("SaveEntry failed: %v", err)
		}
		h.mirror.Append(state.MetaFromEntry(entry))
		ids = append(ids, entry.ID)
	}

	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	delivered := h.client.delivered()
	if len(delivered) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(delivered))
	}
	for i, sub := range delivered {
		if sub.EntryID != ids[i] {
			t.Fatalf("delivery %d out of order: expected %s, got %s", i, ids[i], sub.EntryID)
		}
	}

	count, err := h.store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 || h.mirror.Len() != 0 {
		t.Fatal("delivered entries must be removed everywhere")
	}
}

func TestProcessPendingOfflineIsNoOp(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	h.add(t, map[string]string{"k": "v"})

	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}
	if len(h.client.delivered()) != 0 {
		t.Fatal("offline pass must not submit anything")
	}
	if h.controller.PendingCount() != 1 {
		t.Fatalf("entry must stay pending, count = %d", h.controller.PendingCount())
	}
}

func TestProcessPendingDeletesBlobsAfterDelivery(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	blobID := testsupport.NewBlob(t, h.store, []byte("payload"), queue.BlobMeta{FileName: "a.jpg", MimeType: "image/jpeg"})
	entry := testsupport.NewEntry(t, h.store, map[string]string{"k": "v"}, blobID)
	h.mirror.Append(state.MetaFromEntry(entry))

	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	delivered := h.client.delivered()
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(delivered))
	}
	if len(delivered[0].Attachments) != 1 || string(delivered[0].Attachments[0].Bytes) != "payload" {
		t.Fatalf("attachment not resolved: %#v", delivered[0].Attachments)
	}

	blob, err := h.store.GetBlob(ctx, blobID)
	if err != nil {
		t.Fatalf("GetBlob failed: %v", err)
	}
	if blob != nil {
		t.Fatal("blob must be deleted after successful delivery")
	}
}

func TestFailureReturnsEntryToPendingWithRetryCount(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entry := h.add(t, map[string]string{"k": "v"})
	h.client.failures = 1

	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	fetched, err := h.store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("failed entry must return to pending, got %s", fetched.Status)
	}
	if fetched.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", fetched.RetryCount)
	}
	if fetched.ErrorMessage == "" {
		t.Fatal("failure message must be recorded")
	}

	meta, ok := h.mirror.Get(entry.ID)
	if !ok || meta.RetryCount != 1 || meta.Status != queue.StatusPending {
		t.Fatalf("mirror out of sync: %#v", meta)
	}
}

func TestEntryParksInErrorAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entry := h.add(t, map[string]string{"k": "v"})
	h.client.failAlways = true

	for i := 0; i < 3; i++ {
		if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}

	fetched, err := h.store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if fetched.Status != queue.StatusError {
		t.Fatalf("expected error state after 3 attempts, got %s", fetched.Status)
	}
	if fetched.RetryCount != 3 {
		t.Fatalf("expected retry count 3, got %d", fetched.RetryCount)
	}

	// Additional passes must leave the parked entry alone.
	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}
	fetched, err = h.store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if fetched.RetryCount != 3 {
		t.Fatalf("parked entry must not accrue attempts, got %d", fetched.RetryCount)
	}

	ids := h.controller.ErroredIDs()
	if len(ids) != 1 || ids[0] != entry.ID {
		t.Fatalf("unexpected errored ids: %v", ids)
	}
}

func TestConnectivityLostMidPassDefersRemaining(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := queue.NewEntry(map[string]string{"k": "v"}, nil)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := h.store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("SaveEntry failed: %v", err)
		}
		h.mirror.Append(state.MetaFromEntry(entry))
	}

	// Drop connectivity after the first successful submission.
	h.client.onSubmit = func(*delivery.Submission) {
		h.signal.SetOnline(false)
	}

	if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	if got := len(h.client.delivered()); got != 1 {
		t.Fatalf("expected exactly 1 delivery before the pass stopped, got %d", got)
	}
	if h.controller.PendingCount() != 2 {
		t.Fatalf("remaining entries must stay pending, got %d", h.controller.PendingCount())
	}

	remaining, err := h.store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, entry := range remaining {
		if entry.RetryCount != 0 {
			t.Fatalf("deferred entry must not burn attempts, got %d", entry.RetryCount)
		}
	}
}

func TestStorageFailureDefersWithoutBurningRetries(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entry, err := h.builder.AddEntry(ctx, intake.Request{
		Fields:      map[string]string{"title": "x"},
		Attachments: []intake.Attachment{{FileName: "a.bin", Bytes: []byte("payload")}},
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	// Simulate the blob side of the store going away mid-run. Entry rows
	// stay writable, so state bookkeeping still works while attachment
	// resolution fails.
	raw, err := sql.Open("sqlite", h.store.Path())
	if err != nil {
		t.Fatalf("open raw database: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, `DROP TABLE blobs`); err != nil {
		t.Fatalf("drop blobs table: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
			t.Fatalf("ProcessPending failed: %v", err)
		}
	}

	if len(h.client.delivered()) != 0 {
		t.Fatal("no submission should reach the client without attachment bytes")
	}
	got, err := h.store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got == nil {
		t.Fatal("entry must survive storage failures")
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("expected entry back at pending, got %s", got.Status)
	}
	if got.RetryCount != 0 {
		t.Fatalf("storage failures must not consume retry attempts, retryCount=%d", got.RetryCount)
	}
}

func TestMissingBlobCountsAgainstRetries(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entry, err := h.builder.AddEntry(ctx, intake.Request{
		Fields:      map[string]string{"title": "x"},
		Attachments: []intake.Attachment{{FileName: "a.bin", Bytes: []byte("payload")}},
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	// Deleting the blob behind the entry's back is data loss, not a
	// transient outage; the entry must eventually park in error.
	if err := h.store.DeleteBlob(ctx, entry.BlobRefs[0]); err != nil {
		t.Fatalf("DeleteBlob failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := h.controller.ProcessPending(ctx, syncer.TriggerManual); err != nil {
			t.Fatalf("ProcessPending failed: %v", err)
		}
	}

	got, err := h.store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got == nil || got.Status != queue.StatusError {
		t.Fatalf("expected errored entry, got %#v", got)
	}
	if got.RetryCount != 3 {
		t.Fatalf("expected 3 consumed attempts, got %d", got.RetryCount)
	}
	if !strings.Contains(got.ErrorMessage, "missing") {
		t.Fatalf("error message should name the missing blob, got %q", got.ErrorMessage)
	}
}

func TestDeleteEntryRemovesBlobsAndIsIdempotent(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	blobID := testsupport.NewBlob(t, h.store, []byte("x"), queue.BlobMeta{})
	entry := testsupport.NewEntry(t, h.store, map[string]string{"k": "v"}, blobID)
	h.mirror.Append(state.MetaFromEntry(entry))

	if err := h.controller.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if err := h.controller.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("repeated DeleteEntry must succeed: %v", err)
	}

	blob, err := h.store.GetBlob(ctx, blobID)
	if err != nil {
		t.Fatalf("GetBlob failed: %v", err)
	}
	if blob != nil {
		t.Fatal("referenced blob must be deleted with the entry")
	}
	if h.mirror.Len() != 0 {
		t.Fatal("mirror must drop the deleted entry")
	}
}

func TestRetryRequeuesErroredEntries(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	entry := testsupport.NewEntry(t, h.store, map[string]string{"k": "v"})
	entry.SetError("exhausted")
	entry.RetryCount = 3
	if err := h.store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	h.mirror.Append(state.MetaFromEntry(entry))

	updated, err := h.controller.Retry(ctx)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 requeued entry, got %d", updated)
	}

	meta, ok := h.mirror.Get(entry.ID)
	if !ok || meta.Status != queue.StatusPending || meta.RetryCount != 0 {
		t.Fatalf("mirror not refreshed after retry: %#v", meta)
	}
}

func TestRecoverResetsSendingAndLoadsMirror(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	stuck := testsupport.NewEntry(t, h.store, map[string]string{"k": "stuck"})
	stuck.Status = queue.StatusSending
	stuck.RetryCount = 1
	if err := h.store.SaveEntry(ctx, stuck); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	testsupport.NewEntry(t, h.store, map[string]string{"k": "other"})

	if err := h.controller.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if h.mirror.Len() != 2 {
		t.Fatalf("expected both entries mirrored, got %d", h.mirror.Len())
	}
	meta, ok := h.mirror.Get(stuck.ID)
	if !ok || meta.Status != queue.StatusPending {
		t.Fatalf("stuck entry must be recovered to pending: %#v", meta)
	}
	if meta.RetryCount != 1 {
		t.Fatalf("recovery must preserve retry count, got %d", meta.RetryCount)
	}
}

func TestOfflineToOnlineScenario(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.add(t, map[string]string{"seq": string(rune('a' + i))})
	}

	if err := h.controller.ProcessPending(ctx, syncer.TriggerEnqueue); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}
	if len(h.client.delivered()) != 0 {
		t.Fatal("nothing may be delivered while offline")
	}

	h.signal.SetOnline(true)
	if err := h.controller.ProcessPending(ctx, syncer.TriggerConnectivity); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	if len(h.client.delivered()) != 3 {
		t.Fatalf("expected full drain after reconnect, got %d", len(h.client.delivered()))
	}
	if h.mirror.Len() != 0 {
		t.Fatalf("queue must be empty after drain, got %d", h.mirror.Len())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.add(t, map[string]string{"k": "v"})

	if err := h.controller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := h.controller.Start(ctx); err == nil {
		t.Fatal("second Start must be rejected")
	}

	// The startup pass runs asynchronously; poll for the drain.
	deadline := time.After(5 * time.Second)
	for h.mirror.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("startup pass did not drain the queue")
		case <-time.After(10 * time.Millisecond):
		}
	}

	h.controller.Stop()
	h.controller.Stop()
}
