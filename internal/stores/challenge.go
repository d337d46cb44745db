package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersionV1 = 1

	payloadSize     = 32
	fingerprintSize = 32
)

var (
	ErrChallengeNotFound    = errors.New("challenge record not found")
	ErrChallengeExpired     = errors.New("challenge record expired")
	ErrChallengeUnavailable = errors.New("challenge redis unavailable")
)

// ChallengeRecord is a single issued, not-yet-redeemed challenge.
// Records are immutable: created on issuance, removed on consumption or
// by the sweep.
type ChallengeRecord struct {
	Payload        [payloadSize]byte
	DifficultyBits uint8
	CreatedAtMS    int64
	ExpiresAtMS    int64
	Fingerprint    [fingerprintSize]byte
	// ClientIP is advisory, recorded for audit only.
	ClientIP string
}

// ChallengeStore persists challenges keyed by identifier.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "pc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

// Save persists a new challenge. The key TTL should exceed the record's
// own expiry by the grace window during which consumption still reports
// ErrChallengeExpired instead of ErrChallengeNotFound.
func (s *ChallengeStore) Save(ctx context.Context, challengeID string, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	return nil
}

// Consume atomically looks up and deletes the challenge. Exactly one of
// two racing callers observes the record; the other observes
// ErrChallengeNotFound. A record found past its expiry is deleted
// opportunistically and reported as ErrChallengeExpired.
func (s *ChallengeStore) Consume(ctx context.Context, challengeID string, now time.Time) (*ChallengeRecord, error) {
	const maxRetries = 4
	key := s.key(challengeID)
	nowMS := now.UnixMilli()

	for i := 0; i < maxRetries; i++ {
		var consumed *ChallengeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			// A record is live strictly before its expiry instant.
			if nowMS >= record.ExpiresAtMS {
				return ErrChallengeExpired
			}

			consumed = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrChallengeNotFound
			case errors.Is(err, ErrChallengeExpired):
				return nil, ErrChallengeExpired
			default:
				return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
			}
		}

		return consumed, nil
	}

	// Every retry lost the record to a concurrent consumer or sweep.
	return nil, ErrChallengeNotFound
}

// SweepExpired deletes challenges whose record expiry has passed and
// returns how many were removed. Key TTLs are the backstop when the
// sweep does not run.
func (s *ChallengeStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	nowMS := now.UnixMilli()
	removed := 0

	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 256).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				// Unreadable records are garbage either way.
				if delErr := s.redis.Del(ctx, key).Err(); delErr == nil {
					removed++
				}
				continue
			}

			if nowMS >= record.ExpiresAtMS {
				if err := s.redis.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
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

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	buf.WriteByte(record.DifficultyBits)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAtMS); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAtMS); err != nil {
		return nil, err
	}

	buf.Write(record.Payload[:])
	buf.Write(record.Fingerprint[:])

	if len(record.ClientIP) > 255 {
		return nil, errors.New("challenge record client ip too long")
	}
	buf.WriteByte(byte(len(record.ClientIP)))
	buf.WriteString(record.ClientIP)

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &ChallengeRecord{}

	record.DifficultyBits, err = reader.ReadByte()
	if err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAtMS); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAtMS); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(reader, record.Payload[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.Fingerprint[:]); err != nil {
		return nil, err
	}

	ipLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if ipLen > 0 {
		ip := make([]byte, ipLen)
		if _, err := io.ReadFull(reader, ip); err != nil {
			return nil, err
		}
		record.ClientIP = string(ip)
	}

	return record, nil
}
