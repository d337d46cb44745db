// Package pow implements the hash puzzle shared between server-side
// verification and client-side search: a SHA-256 digest over challenge
// payload plus big-endian nonce, tested against a leading-zero-bit
// difficulty threshold.
//
// # Design
//
// Everything here is a pure function. The digest rule is the wire
// contract between issuer and solver and must stay bit-exact: the same
// (payload, nonce) pair produces the same digest on every
// implementation, and MeetsDifficulty agrees with a per-bit count at
// every byte boundary.
//
// # What this package must NOT do
//
//   - Hold state, touch storage, or know about challenges as records.
//   - Import any other package of this module.
package pow
