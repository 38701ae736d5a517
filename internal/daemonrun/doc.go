// Package daemonrun hosts the daemon process runtime shared by the
// satcheld binary and the CLI's hidden daemon command.
package daemonrun
