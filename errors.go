package powgate

import "errors"

var (
	// ErrRateLimited reports that the client fingerprint exhausted its
	// challenge-issuance budget for the current window.
	ErrRateLimited = errors.New("challenge issuance rate limited")
	// ErrChallengeExpired reports a challenge submitted after its
	// deadline.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrInvalidNonce reports a rejected submission: the digest missed
	// the difficulty target, or the challenge ID is unknown or already
	// consumed. The two cases are indistinguishable to callers so a
	// probing client cannot tell a burned challenge from a wrong guess;
	// metrics and audit events keep them separate internally.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrSessionNotFound reports an unknown, expired, or logged-out
	// session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid reports a session token that failed signature or
	// claim validation.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrFingerprintRequired reports a call whose context carries no
	// User-Agent to fingerprint.
	ErrFingerprintRequired = errors.New("client fingerprint required")
	// ErrStoreUnavailable wraps Redis failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady reports use of an Engine that was not built via
	// [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)
