package pow

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
)

const (
	// PayloadSize is the fixed length of a challenge payload in bytes.
	PayloadSize = 32

	// MinDifficultyBits is the lowest accepted difficulty. Zero bits is
	// rejected outright: every digest would pass.
	MinDifficultyBits = 1

	// MaxDifficultyBits is the highest accepted difficulty, covering the
	// first four digest bytes.
	MaxDifficultyBits = 32
)

// Digest computes SHA-256 over the challenge payload followed by the
// 4-byte big-endian encoding of nonce.
func Digest(payload []byte, nonce uint32) [32]byte {
	var nonceBE [4]byte
	binary.BigEndian.PutUint32(nonceBE[:], nonce)

	h := sha256.New()
	h.Write(payload)
	h.Write(nonceBE[:])

	var digest [32]byte
	h.Sum(digest[:0])
	return digest
}

// LeadingZeroBits counts the leading zero bits of a digest, capped at
// 255 for the all-zero digest.
func LeadingZeroBits(digest [32]byte) uint8 {
	var count uint8
	for _, b := range digest {
		if b == 0 {
			if count >= 255-8 {
				return 255
			}
			count += 8
			continue
		}
		return count + uint8(bits.LeadingZeros8(b))
	}
	return count
}

// MeetsDifficulty reports whether the digest carries at least
// difficultyBits leading zero bits. Difficulties outside
// [MinDifficultyBits, MaxDifficultyBits] never pass.
func MeetsDifficulty(digest [32]byte, difficultyBits uint8) bool {
	if difficultyBits < MinDifficultyBits || difficultyBits > MaxDifficultyBits {
		return false
	}
	return LeadingZeroBits(digest) >= difficultyBits
}

// Verify computes the digest for (payload, nonce) and tests it against
// difficultyBits. This is the verification rule the solver searches for.
func Verify(payload []byte, nonce uint32, difficultyBits uint8) bool {
	return MeetsDifficulty(Digest(payload, nonce), difficultyBits)
}
