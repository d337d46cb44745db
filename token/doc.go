// Package token mints and parses the signed session tokens handed to clients
// after a successful proof-of-work submission. Tokens carry only the session
// ID; the Redis session record stays authoritative, so parsing a token is
// never enough on its own to pass the gate.
package token
