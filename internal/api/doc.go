// Package api defines the serializable types exchanged between the daemon
// and its clients, plus conversions from internal models.
package api
