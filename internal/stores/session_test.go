package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSessionRecord(now time.Time, ttl time.Duration) *SessionRecord {
	record := &SessionRecord{
		ChallengeID: "11111111-2222-3333-4444-555555555555",
		CreatedAtMS: now.UnixMilli(),
		ExpiresAtMS: now.Add(ttl).UnixMilli(),
	}
	for i := range record.Fingerprint {
		record.Fingerprint[i] = byte(i * 3)
	}
	return record
}

func TestSessionSaveGet(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(rdb, "ps")

	now := time.Now()
	record := testSessionRecord(now, time.Hour)
	if err := store.Save(ctx, "s1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "s1", record.Fingerprint, now)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ChallengeID != record.ChallengeID {
		t.Fatalf("challenge id lost in roundtrip: %q", got.ChallengeID)
	}
	if got.ExpiresAtMS != record.ExpiresAtMS || got.CreatedAtMS != record.CreatedAtMS {
		t.Fatalf("timestamps lost in roundtrip: %+v", got)
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(rdb, "ps")

	t0 := time.Now()
	const ttl = time.Hour
	record := testSessionRecord(t0, ttl)
	if err := store.Save(ctx, "s1", record, 2*ttl); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	expiry := time.UnixMilli(record.ExpiresAtMS)
	if _, err := store.Get(ctx, "s1", record.Fingerprint, expiry.Add(-time.Millisecond)); err != nil {
		t.Fatalf("session should be valid just before expiry: %v", err)
	}
	// The expiry instant itself is already invalid, matching the challenge
	// store's convention.
	if _, err := store.Get(ctx, "s1", record.Fingerprint, expiry); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound at the expiry instant, got %v", err)
	}
	if _, err := store.Get(ctx, "s1", record.Fingerprint, expiry.Add(time.Millisecond)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound just after expiry, got %v", err)
	}
}

func TestSessionFingerprintMismatch(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(rdb, "ps")

	now := time.Now()
	record := testSessionRecord(now, time.Hour)
	if err := store.Save(ctx, "s1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := record.Fingerprint
	other[0] ^= 0xFF
	if _, err := store.Get(ctx, "s1", other, now); !errors.Is(err, ErrSessionFingerprintMismatch) {
		t.Fatalf("expected ErrSessionFingerprintMismatch, got %v", err)
	}
}

func TestSessionDeleteIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(rdb, "ps")

	now := time.Now()
	record := testSessionRecord(now, time.Hour)
	if err := store.Save(ctx, "s1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("repeat Delete must be a no-op, got %v", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("deleting an absent session must be a no-op, got %v", err)
	}

	if _, err := store.Get(ctx, "s1", record.Fingerprint, now); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionSweepExpired(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(rdb, "ps")

	now := time.Now()
	if err := store.Save(ctx, "dead", testSessionRecord(now.Add(-2*time.Hour), time.Hour), 4*time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "live", testSessionRecord(now, time.Hour), 2*time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed, err := store.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d sessions, want 1", removed)
	}

	live := testSessionRecord(now, time.Hour)
	if _, err := store.Get(ctx, "live", live.Fingerprint, now); err != nil {
		t.Fatalf("live session should survive the sweep: %v", err)
	}
}

func FuzzDecodeSessionRecord(f *testing.F) {
	valid, err := encodeSessionRecord(testSessionRecord(time.Now(), time.Hour))
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte{sessionRecordVersionV1, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = decodeSessionRecord(data)
	})
}
