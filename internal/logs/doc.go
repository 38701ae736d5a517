// Package logs reads daemon log files with offset-based pagination and
// optional follow semantics for the logs command.
package logs
