package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery lifecycle of a queue entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusSending,
	StatusSent,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further automatic transition.
// Sent is terminal because it immediately leads to deletion; error entries
// stay visible until an explicit delete or retry.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusError
}

// Entry is one durable form submission awaiting delivery.
//
// BlobRefs lists attachment identifiers in the order the attachments were
// supplied; every referenced blob is written before the entry itself.
// Fields is opaque to the queue and carried verbatim to the delivery client.
type Entry struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Status       Status
	RetryCount   int
	Fields       map[string]string
	BlobRefs     []string
	ErrorMessage string
}

// NewEntry builds a pending entry with a fresh identifier. blobRefs keeps
// the order attachments were supplied in.
func NewEntry(fields map[string]string, blobRefs []string) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
		Fields:    fields,
		BlobRefs:  blobRefs,
	}
}

// Blob is an opaque binary attachment stored independently of entry metadata.
type Blob struct {
	ID         string
	Bytes      []byte
	FileName   string
	MimeType   string
	UploadedAt time.Time
}

// BlobMeta carries attachment metadata supplied alongside raw bytes.
type BlobMeta struct {
	FileName string
	MimeType string
}

// HealthSummary describes aggregated entry counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Pending int
	Sending int
	Errored int
}

// Clone returns a deep copy so mutations on the copy never leak into shared state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Fields != nil {
		cp.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			cp.Fields[k] = v
		}
	}
	if e.BlobRefs != nil {
		cp.BlobRefs = append([]string(nil), e.BlobRefs...)
	}
	return &cp
}

// SetError marks the entry terminally failed with the given message.
func (e *Entry) SetError(message string) {
	e.Status = StatusError
	e.ErrorMessage = message
}
