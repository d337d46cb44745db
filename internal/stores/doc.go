// Package stores provides the Redis-backed record stores for the gate:
// issued challenges and post-verification sessions.
//
// # Design
//
// Each store persists a versioned, binary-encoded record under a
// prefixed key with a TTL. Challenge consumption uses a WATCH/MULTI
// optimistic transaction with automatic retry on contention, so a
// record is read and deleted in one indivisible step: two racing
// consumers observe exactly one success. Records carry their own expiry
// timestamp in addition to the key TTL, which lets consumption
// distinguish "expired but not yet reaped" from "never existed".
// Fingerprint comparisons on session reads use constant-time compare.
//
// # What this package must NOT do
//
//   - Generate identifiers or payloads, verify solutions, or rate-limit.
//     Those belong to the engine and its sibling packages.
//   - Import the root package or any sibling internal package.
package stores
