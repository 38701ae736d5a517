package api

import (
	"time"

	"satchel/internal/queue"
	"satchel/internal/state"
)

// FromEntry converts a persisted entry into its transport form.
func FromEntry(entry *queue.Entry) QueueEntry {
	if entry == nil {
		return QueueEntry{}
	}
	return QueueEntry{
		ID:           entry.ID,
		Status:       string(entry.Status),
		RetryCount:   entry.RetryCount,
		Attachments:  len(entry.BlobRefs),
		Fields:       copyFields(entry.Fields),
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    formatTime(entry.CreatedAt),
		UpdatedAt:    formatTime(entry.UpdatedAt),
	}
}

// FromEntryMeta converts mirrored entry metadata into its transport form.
func FromEntryMeta(meta state.EntryMeta) QueueEntry {
	return QueueEntry{
		ID:           meta.ID,
		Status:       string(meta.Status),
		RetryCount:   meta.RetryCount,
		Attachments:  len(meta.BlobRefs),
		Fields:       copyFields(meta.Fields),
		ErrorMessage: meta.ErrorMessage,
		CreatedAt:    formatTime(meta.CreatedAt),
	}
}

// FromEntryMetas converts a mirror snapshot, preserving its order.
func FromEntryMetas(metas []state.EntryMeta) []QueueEntry {
	entries := make([]QueueEntry, 0, len(metas))
	for _, meta := range metas {
		entries = append(entries, FromEntryMeta(meta))
	}
	return entries
}

// StatsFromCounts converts per-status counts into transport form.
func StatsFromCounts(counts map[queue.Status]int) QueueStats {
	stats := QueueStats{ByStatus: make(map[string]int64, len(counts))}
	for status, count := range counts {
		stats.ByStatus[string(status)] = int64(count)
		stats.Total += int64(count)
	}
	return stats
}

// HealthFromSummary converts an aggregated health summary into transport form.
func HealthFromSummary(summary queue.HealthSummary) QueueHealth {
	health := QueueHealth{
		Healthy: summary.Errored == 0,
		Pending: int64(summary.Pending),
		Sending: int64(summary.Sending),
		Errored: int64(summary.Errored),
	}
	if summary.Errored > 0 {
		health.Detail = "entries in error state require retry or delete"
	}
	return health
}

func copyFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
