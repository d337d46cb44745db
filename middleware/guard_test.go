package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	powgate "github.com/powgate/powgate"
	"github.com/powgate/powgate/solver"
)

func newSolvedSession(t *testing.T) (*powgate.Engine, string, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := powgate.DefaultConfig()
	cfg.Challenge.DifficultyBits = 8
	cfg.Reaper.Enabled = false
	cfg.Token.PrivateKey = []byte("test-secret-test-secret-test-secret")

	engine, err := powgate.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	const userAgent = "guard-test/1.0"
	ctx := powgate.WithUserAgent(context.Background(), userAgent)

	grant, err := engine.IssueChallenge(ctx)
	if err != nil {
		t.Fatalf("issue challenge: %v", err)
	}

	w := solver.Start(grant.Payload[:], grant.DifficultyBits, solver.Config{})
	defer w.Stop()

	var nonce uint32
	deadline := time.After(30 * time.Second)
	for found := false; !found; {
		select {
		case event := <-w.Events():
			if event.Type == solver.EventFound {
				nonce = event.Nonce
				found = true
			}
		case <-deadline:
			t.Fatal("solver did not finish in time")
		}
	}

	result, err := engine.SubmitSolution(ctx, grant.ChallengeID, nonce)
	if err != nil {
		t.Fatalf("submit solution: %v", err)
	}

	return engine, result.Token, userAgent
}

func protectedHandler(t *testing.T, hits *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			t.Error("session info missing from gated request context")
		}
		*hits++
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAllowsSolvedCookie(t *testing.T) {
	engine, token, userAgent := newSolvedSession(t)

	hits := 0
	handler := Guard(engine, Options{})(protectedHandler(t, &hits))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("User-Agent", userAgent)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if hits != 1 {
		t.Fatalf("handler ran %d times, want 1", hits)
	}
}

func TestGuardAllowsBearerFallback(t *testing.T) {
	engine, token, userAgent := newSolvedSession(t)

	hits := 0
	handler := Guard(engine, Options{})(protectedHandler(t, &hits))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
}

func TestGuardRejectsMissingToken(t *testing.T) {
	engine, _, userAgent := newSolvedSession(t)

	handler := Guard(engine, Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("User-Agent", userAgent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
}

func TestGuardRejectsForeignUserAgent(t *testing.T) {
	engine, token, _ := newSolvedSession(t)

	handler := Guard(engine, Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for a stolen token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("User-Agent", "somebody-else/9.9")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
}

func TestGuardCustomRejection(t *testing.T) {
	engine, _, userAgent := newSolvedSession(t)

	opts := Options{
		OnRejected: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/challenge", http.StatusSeeOther)
		}),
	}
	handler := Guard(engine, opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("User-Agent", userAgent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/challenge" {
		t.Fatalf("redirect location %q", got)
	}
}
