// Package protocol groups the paramwire wire contract.
//
// Ownership boundary:
// - frame: header, checksums and the bounded stream decoder
// - payload: big-endian field writer/reader
// - schema: message type registry and payload bounds
// - session: handshake, liveness and the pending request table
package protocol
