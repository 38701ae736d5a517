// Package queue persists form submissions and their binary attachments.
//
// The store keeps two independently keyed SQLite tables: entries holds
// submission metadata (fields, status, retry bookkeeping) and blobs holds
// raw attachment bytes. Callers write all blobs for an entry before writing
// the entry itself, so an entry on disk always resolves its blob
// references. The reverse is not guaranteed: a crash between the two writes
// may leave an orphaned blob, which SweepOrphanBlobs can reclaim.
package queue
