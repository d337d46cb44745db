package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionRecordVersionV1 = 1

var (
	ErrSessionNotFound            = errors.New("session record not found")
	ErrSessionFingerprintMismatch = errors.New("session fingerprint mismatch")
	ErrSessionUnavailable         = errors.New("session redis unavailable")
)

// SessionRecord is a redeemed-challenge session. Immutable after
// creation except for deletion.
type SessionRecord struct {
	Fingerprint [fingerprintSize]byte
	// ChallengeID names the originating challenge, kept for audit only.
	ChallengeID string
	CreatedAtMS int64
	ExpiresAtMS int64
}

// SessionStore persists sessions keyed by identifier.
type SessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewSessionStore(redisClient redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "ps"
	}
	return &SessionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, record *SessionRecord, ttl time.Duration) error {
	encoded, err := encodeSessionRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	return nil
}

// Get returns the session iff it exists, has not expired, and is bound
// to the given fingerprint. The fingerprint compare is constant-time; a
// mismatch is reported distinctly so callers can audit it, though it
// must surface as plain invalidity at the protocol boundary.
func (s *SessionStore) Get(ctx context.Context, sessionID string, fingerprint [fingerprintSize]byte, now time.Time) (*SessionRecord, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	record, err := decodeSessionRecord(data)
	if err != nil {
		return nil, err
	}

	// Live strictly before the expiry instant, matching challenge consume.
	if now.UnixMilli() >= record.ExpiresAtMS {
		return nil, ErrSessionNotFound
	}

	if subtle.ConstantTimeCompare(record.Fingerprint[:], fingerprint[:]) != 1 {
		return nil, ErrSessionFingerprintMismatch
	}

	return record, nil
}

// Delete removes the session. Deleting an absent session is not an
// error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}

// SweepExpired deletes sessions whose record expiry has passed and
// returns how many were removed.
func (s *SessionStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	nowMS := now.UnixMilli()
	removed := 0

	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 256).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
			}

			record, err := decodeSessionRecord(data)
			if err != nil {
				if delErr := s.redis.Del(ctx, key).Err(); delErr == nil {
					removed++
				}
				continue
			}

			if nowMS >= record.ExpiresAtMS {
				if err := s.redis.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func encodeSessionRecord(record *SessionRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAtMS); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAtMS); err != nil {
		return nil, err
	}

	buf.Write(record.Fingerprint[:])

	if len(record.ChallengeID) > 255 {
		return nil, errors.New("session record challenge id too long")
	}
	buf.WriteByte(byte(len(record.ChallengeID)))
	buf.WriteString(record.ChallengeID)

	return buf.Bytes(), nil
}

func decodeSessionRecord(data []byte) (*SessionRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionRecordVersionV1 {
		return nil, errors.New("invalid session record version")
	}

	record := &SessionRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAtMS); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAtMS); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(reader, record.Fingerprint[:]); err != nil {
		return nil, err
	}

	idLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if idLen > 0 {
		id := make([]byte, idLen)
		if _, err := io.ReadFull(reader, id); err != nil {
			return nil, err
		}
		record.ChallengeID = string(id)
	}

	return record, nil
}
