// Package session owns the client<->host connection lifecycle.
//
// Ownership boundary:
// - hello/hello.ack handshake payloads and heartbeat wire helpers
// - the Disconnected -> Handshaking -> Connected state machine and liveness
// - retry/backoff and the pending parameter request table
//
// Nothing in this package performs I/O. Callers pass the current time in and
// write the returned frames themselves.
package session
