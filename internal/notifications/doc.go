// Package notifications delivers optional ntfy push notifications for
// queue lifecycle events. Unconfigured installations get a noop service.
package notifications
