package powgate

import "time"

// ChallengeGrant is what [Engine.IssueChallenge] hands to a client: the
// puzzle inputs plus enough metadata to show a progress estimate.
type ChallengeGrant struct {
	// ChallengeID identifies the challenge on submission. Single use.
	ChallengeID string
	// Payload is the random input the nonce must be appended to.
	Payload [32]byte
	// DifficultyBits is the required count of leading zero bits in the
	// solution digest.
	DifficultyBits uint8
	// ExpiresAt is the submission deadline.
	ExpiresAt time.Time
	// ExpectedAttempts is 2^DifficultyBits, the mean search cost.
	ExpectedAttempts uint64
}

// SubmitResult is what [Engine.SubmitSolution] returns on success.
type SubmitResult struct {
	// SessionID identifies the solved-state session in the store.
	SessionID string
	// Token is the signed session token to hand back to the client,
	// typically in an HTTP-only cookie.
	Token string
	// ExpiresAt is when the session (and token) stop being honored.
	ExpiresAt time.Time
}

// SessionInfo describes a live session, as reported by
// [Engine.CheckStatus].
type SessionInfo struct {
	SessionID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ReapStats reports one reaper pass, per target.
type ReapStats struct {
	ChallengesRemoved  int
	SessionsRemoved    int
	RateWindowsRemoved int
}
