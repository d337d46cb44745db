// Package solver implements the client-side search for a nonce whose
// digest meets a challenge's difficulty.
//
// # Design
//
// A Worker runs the brute-force loop on its own goroutine so the
// CPU-bound search never blocks the caller. Communication is
// one-directional: rate-limited progress events plus a single terminal
// found event on the channel returned by Events. The caller may Stop
// the worker at any point; no events are delivered after Stop returns.
//
// Hashing proceeds in bounded batches between wall-clock checks so
// progress reporting keeps a steady cadence without slowing the search.
// Expected attempts to success is 2^difficulty with geometric variance;
// there is no shortcut.
//
// Playback is a decorative variant that replays a fixed synthetic hash
// rate over the same event types. It performs no hashing and never
// emits a found event, so its output can never be submitted.
package solver
