// Package daemon coordinates the long-running mediacat process.
//
// It wires configuration, the catalog store, the scan workflow manager, and
// the HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes scan queue maintenance helpers and
// serves catalog queries over HTTP with token or session authentication.
//
// Keep orchestration logic here: scanning and reconciliation live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
