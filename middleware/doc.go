// Package middleware exposes HTTP middleware that gates routes behind a
// solved powgate session.
//
// [Guard] reads the session token from a cookie (or the Authorization
// header), calls [powgate.Engine.CheckStatus], and injects the resulting
// session info into the request context for downstream handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement gate logic itself; all decisions are delegated to CheckStatus.
//
// # What this package must NOT do
//
//   - Parse or create session tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make gate decisions beyond pass/reject from Engine.CheckStatus.
package middleware
