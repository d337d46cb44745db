package powgate

import "crypto/sha256"

// Fingerprint is the weak client identity: a SHA-256 hash of the raw
// User-Agent string. It is deliberately cheap to forge; it exists to bucket
// rate limits and bind sessions, not to authenticate anyone.
type Fingerprint [32]byte

// FingerprintFromUserAgent derives the fingerprint for a raw User-Agent
// string. The empty string still hashes to a valid fingerprint; callers
// decide whether to reject it.
func FingerprintFromUserAgent(userAgent string) Fingerprint {
	return Fingerprint(sha256.Sum256([]byte(userAgent)))
}
