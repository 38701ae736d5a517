// Package delivery submits resolved queue entries to the remote endpoint.
// The sync controller treats every failure here the same way: retryable up
// to the configured attempt ceiling.
package delivery
