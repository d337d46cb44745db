// Package reaper runs the background sweep loop that removes expired
// challenge records, expired sessions, and stale rate-limit windows from
// Redis.
//
// # Design
//
// Redis TTLs already bound how long any key can live; the reaper exists so
// that expired records stop being observable promptly instead of lingering
// until Redis gets around to them. Each sweep walks the relevant key prefixes
// with SCAN and deletes what is past due. Sweep outcomes are reported through
// a callback so the engine can count them without this package knowing about
// metrics or audit.
//
// # What this package must NOT do
//
//   - Own the sweep targets (the engine wires stores in as [Target] funcs).
//   - Block engine shutdown for longer than the sweep in flight.
package reaper
