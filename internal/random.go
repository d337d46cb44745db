// Package internal holds helpers shared by the powgate engine and its
// internal sub-packages.
package internal

import "crypto/rand"

const PayloadSize = 32

// NewChallengePayload draws a fresh random challenge payload. Payloads must
// be unpredictable; a guessable payload lets clients precompute solutions.
func NewChallengePayload() ([PayloadSize]byte, error) {
	var payload [PayloadSize]byte
	_, err := rand.Read(payload[:])
	return payload, err
}
