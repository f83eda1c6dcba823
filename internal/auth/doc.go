// Package auth manages catalog user accounts and session tokens.
//
// Passwords are stored as bcrypt hashes. Login issues an opaque token whose
// SHA-256 digest is persisted with an expiry; the plain token is only ever
// returned to the caller, so a leaked database does not leak usable
// sessions.
package auth
