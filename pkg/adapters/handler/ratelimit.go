package handler

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc keys requests by keyHeader when present, then by the first
// X-Forwarded-For address when trustXFF is set, then by the remote IP.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return "key:" + v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

type limitInfo interface {
	Limit() int
}

// RateLimit rejects requests whose key is over budget with 429.
func RateLimit(limiter ports.RateLimiter, keyFn KeyFunc) func(next http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = DefaultKeyFunc("", false)
	}

	limitHeader := ""
	if li, ok := limiter.(limitInfo); ok {
		limitHeader = strconv.Itoa(li.Limit())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limitHeader != "" {
				w.Header().Set("X-RateLimit-Limit", limitHeader)
			}
			if err := limiter.Check(keyFn(r)); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
