// Package intake turns raw form submissions into durable queue entries.
// Attachments are persisted before the entry that references them, so a
// stored entry always resolves its blobs.
package intake
