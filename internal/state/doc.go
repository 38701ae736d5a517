// Package state holds the in-memory mirror of queue entry metadata that
// drives status display. It never stores attachment bytes: only blob
// identifiers, strings, and numbers cross into it, so every snapshot is
// serializable as-is.
//
// All mutations funnel through the mirror's exported methods under one
// lock, giving the mirror a single logical writer. Readers always observe
// the latest committed state, never a half-applied transition.
package state
