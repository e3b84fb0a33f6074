package mw

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/gateway/ratelimit"
)

// RateLimit applies the per-client limiter to every request except health
// probes, the metrics scrape, and CORS preflights. onHit, when non-nil, is
// called with the client key for each rejected request.
func RateLimit(limiter *ratelimit.Limiter, onHit func(client string), next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		client := clientIdentity(r)

		dec := limiter.Acquire(client, time.Now())
		if !dec.Allowed {
			if onHit != nil {
				onHit(client)
			}
			reqID, _ := RequestIDFrom(r.Context())
			if dec.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
			}
			writeJSONError(w, http.StatusTooManyRequests, &core.Error{
				Type:      core.ErrRateLimit,
				Message:   "rate limit exceeded",
				RequestID: reqID,
				RetryAfterMs: func() *int {
					if dec.RetryAfter <= 0 {
						return nil
					}
					ms := dec.RetryAfter * 1000
					return &ms
				}(),
			})
			return
		}
		if dec.Permit != nil {
			defer dec.Permit.Release()
		}

		next.ServeHTTP(w, r)
	})
}

// clientIdentity keys the limiter on the bearer token when one is sent,
// falling back to the remote IP.
func clientIdentity(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if tok, ok := strings.CutPrefix(authz, "Bearer "); ok && strings.TrimSpace(tok) != "" {
		return ratelimit.ClientKey(strings.TrimSpace(tok))
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return ratelimit.ClientKey(host)
}
