package middleware

import (
	"context"
	"net/http"
	"strings"

	powgate "github.com/powgate/powgate"
)

// DefaultCookieName is where Guard looks for the session token when no
// cookie name is configured.
const DefaultCookieName = "powgate_session"

type sessionInfoContextKey struct{}

// SessionFromContext returns the session info Guard attached to a request
// that passed the gate.
func SessionFromContext(ctx context.Context) (*powgate.SessionInfo, bool) {
	info, ok := ctx.Value(sessionInfoContextKey{}).(*powgate.SessionInfo)
	return info, ok
}

// Options tunes Guard behavior. The zero value uses [DefaultCookieName]
// and a plain 403 on rejection.
type Options struct {
	// CookieName overrides the session cookie name.
	CookieName string
	// OnRejected, when set, renders the rejection response. Useful for
	// redirecting browsers to a challenge page.
	OnRejected http.Handler
}

// Guard wraps handlers so they only run for clients holding a live solved
// session. The token is taken from the session cookie, falling back to a
// Bearer Authorization header for non-browser clients.
func Guard(engine *powgate.Engine, opts Options) func(http.Handler) http.Handler {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	reject := opts.OnRejected
	if reject == nil {
		reject = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "proof of work required", http.StatusForbidden)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject.ServeHTTP(w, r)
				return
			}

			token := tokenFromRequest(r, cookieName)
			if token == "" {
				reject.ServeHTTP(w, r)
				return
			}

			ctx := powgate.WithUserAgent(r.Context(), r.UserAgent())
			info, err := engine.CheckStatus(ctx, token)
			if err != nil {
				reject.ServeHTTP(w, r)
				return
			}

			ctx = context.WithValue(r.Context(), sessionInfoContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
