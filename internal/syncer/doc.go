// Package syncer drives delivery of queued entries. A single run loop
// owns every processing pass: triggers (startup, connectivity restored,
// interval tick, manual kick, post-enqueue kick) are coalesced into a
// one-slot channel, so two passes can never overlap and at most one
// delivery attempt is in flight at any time.
//
// Within a pass, entries are processed strictly in creation order. A
// failed delivery increments the entry's retry count and returns it to
// pending; at the attempt ceiling the entry is parked in the error state
// with its last failure message, visible until explicitly deleted or
// retried. Success deletes the entry and its blobs; removal happens only
// on confirmed delivery or explicit delete, never silently.
package syncer
