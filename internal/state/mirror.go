package state

import (
	"sort"
	"sync"
	"time"

	"satchel/internal/queue"
)

// EntryMeta is the serializable projection of a queue entry. BlobRefs holds
// attachment identifiers only; resolving bytes is the persistence layer's
// job.
type EntryMeta struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	Status       queue.Status      `json:"status"`
	RetryCount   int               `json:"retry_count"`
	Fields       map[string]string `json:"fields,omitempty"`
	BlobRefs     []string          `json:"blob_refs,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// EventKind describes a mirror mutation.
type EventKind string

const (
	EventAppended EventKind = "appended"
	EventUpdated  EventKind = "updated"
	EventRemoved  EventKind = "removed"
)

// Event is delivered to registered listeners after a mutation commits.
type Event struct {
	Kind  EventKind
	Entry EntryMeta
}

// Listener receives mirror events. Implementations must not call back into
// the mirror's mutators.
type Listener func(Event)

// Mirror is the reactive in-memory store of entry metadata.
type Mirror struct {
	mu        sync.RWMutex
	entries   map[string]EntryMeta
	listeners []Listener
}

// NewMirror constructs an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{entries: make(map[string]EntryMeta)}
}

// MetaFromEntry projects a persisted entry into its serializable metadata.
func MetaFromEntry(entry *queue.Entry) EntryMeta {
	meta := EntryMeta{
		ID:           entry.ID,
		CreatedAt:    entry.CreatedAt,
		Status:       entry.Status,
		RetryCount:   entry.RetryCount,
		ErrorMessage: entry.ErrorMessage,
	}
	if entry.Fields != nil {
		meta.Fields = make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			meta.Fields[k] = v
		}
	}
	if entry.BlobRefs != nil {
		meta.BlobRefs = append([]string(nil), entry.BlobRefs...)
	}
	return meta
}

// Subscribe registers a listener for mutation events. Listeners are invoked
// after the mutation commits, outside the write lock, in registration order.
func (m *Mirror) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

// Replace swaps the mirror contents for the given snapshot. Used at startup
// to load persisted entries; no events are emitted.
func (m *Mirror) Replace(metas []EntryMeta) {
	next := make(map[string]EntryMeta, len(metas))
	for _, meta := range metas {
		next[meta.ID] = meta
	}
	m.mu.Lock()
	m.entries = next
	m.mu.Unlock()
}

// Append adds a new entry's metadata.
func (m *Mirror) Append(meta EntryMeta) {
	m.mu.Lock()
	m.entries[meta.ID] = meta
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, Event{Kind: EventAppended, Entry: meta})
}

// Update replaces an entry's metadata. Unknown ids are appended rather than
// dropped so the mirror converges on persisted truth.
func (m *Mirror) Update(meta EntryMeta) {
	m.mu.Lock()
	kind := EventUpdated
	if _, ok := m.entries[meta.ID]; !ok {
		kind = EventAppended
	}
	m.entries[meta.ID] = meta
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, Event{Kind: kind, Entry: meta})
}

// Remove drops an entry. Removing an unknown id is a no-op.
func (m *Mirror) Remove(id string) {
	m.mu.Lock()
	meta, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	listeners := m.listenersLocked()
	m.mu.Unlock()
	if ok {
		notify(listeners, Event{Kind: EventRemoved, Entry: meta})
	}
}

// Get returns a single entry's metadata.
func (m *Mirror) Get(id string) (EntryMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.entries[id]
	return meta, ok
}

// Snapshot returns all entries ordered ascending by creation time.
func (m *Mirror) Snapshot() []EntryMeta {
	return m.snapshot(nil)
}

// Pending returns entries in the pending status ordered ascending by
// creation time. This ordering is the delivery order.
func (m *Mirror) Pending() []EntryMeta {
	pending := queue.StatusPending
	return m.snapshot(&pending)
}

// Len reports the number of entries currently mirrored.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Mirror) snapshot(filter *queue.Status) []EntryMeta {
	m.mu.RLock()
	metas := make([]EntryMeta, 0, len(m.entries))
	for _, meta := range m.entries {
		if filter != nil && meta.Status != *filter {
			continue
		}
		metas = append(metas, meta)
	}
	m.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].ID < metas[j].ID
		}
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas
}

func (m *Mirror) listenersLocked() []Listener {
	return append([]Listener(nil), m.listeners...)
}

func notify(listeners []Listener, event Event) {
	for _, listener := range listeners {
		listener(event)
	}
}
