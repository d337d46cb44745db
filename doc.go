// Package powgate provides a proof-of-work gate for separating humans (or at
// least, clients willing to spend CPU) from cheap bots. It issues hash
// challenges, verifies solutions, and tracks solved state in short-lived
// Redis-backed sessions, so protected endpoints only pay the challenge cost
// once per client per session window.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// powgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (ChallengeGrant, SubmitResult, MetricsSnapshot). All
// internal coordination, record encoding, rate limiting, and the background
// reaper live under internal/ and are never exported. The pure hash puzzle
// lives in the pow sub-package, and the client-side solver in solver; both
// are usable without an Engine.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Treat a parsed session token as proof by itself: CheckStatus always
//     consults the session store.
//
// # Failure posture
//
// The gate fails closed. When Redis is unreachable, IssueChallenge and
// SubmitSolution return wrapped ErrStoreUnavailable and CheckStatus reports
// the client as unsolved.
package powgate
