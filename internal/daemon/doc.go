// Package daemon coordinates the long-running Satchel process.
//
// It wires configuration, queue storage, the in-memory mirror, the
// connectivity monitor, and the sync controller into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon exposes queue
// maintenance helpers, handles entry intake, and owns notifications triggered
// by queue events.
//
// Keep orchestration logic here: delivery mechanics live in the syncer and
// delivery packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
