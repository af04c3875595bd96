package gateway

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/tarpitlabs/tarpit/internal/config"
)

// ResolvedAuth holds the resolved API credential for the server.
// An empty token disables authentication (local development).
type ResolvedAuth struct {
	Token string
}

// ResolveAuth resolves the API key from config and environment.
// Precedence: config value → env variable → empty.
func ResolveAuth(cfg config.ServerAuth) ResolvedAuth {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("TARPIT_AUTH_TOKEN")
	}
	return ResolvedAuth{Token: token}
}

// Enabled reports whether requests must present a credential.
func (a ResolvedAuth) Enabled() bool { return a.Token != "" }

// Authorize checks the request's credential. Accepted carriers: the
// x-api-key header, a bearer token, or a "key" query parameter (the last
// for WebSocket clients that cannot set headers).
func (a ResolvedAuth) Authorize(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}

	if key := r.Header.Get("x-api-key"); key != "" {
		return safeEqual(key, a.Token)
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return safeEqual(strings.TrimPrefix(auth, "Bearer "), a.Token)
	}
	if key := r.URL.Query().Get("key"); key != "" {
		return safeEqual(key, a.Token)
	}
	return false
}

// safeEqual performs a constant-time string comparison to prevent timing
// attacks. It avoids early-return on length mismatch to prevent leaking
// secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
