// Package rate provides the Redis-backed fixed-window limiter that throttles
// challenge issuance per client fingerprint.
//
// # Window semantics
//
// Windows are aligned to wall-clock boundaries: windowStart is the request
// time truncated down to a multiple of the window length. Each window gets its
// own counter key, so a new window always starts from zero. Counters are
// incremented before comparison, which keeps a persistent abuser throttled for
// as long as it keeps hitting the endpoint.
//
// Key layout: prl:<fingerprint-b64>:<windowStartMs>. Keys carry a retention
// TTL so Redis reclaims them on its own, and SweepWindows removes stale ones
// eagerly.
//
// # What this package must NOT do
//
//   - Decide the limit or window length (the engine passes them in).
//   - Distinguish clients by anything other than the fingerprint it is given.
//   - Be imported outside the powgate module.
package rate
