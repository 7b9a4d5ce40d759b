package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"

	requestIDHeader = "X-Request-Id"
)

type Middleware struct {
	jwtSecret []byte
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{
		jwtSecret: []byte(cfg.JWTSecret),
	}
}

// UserIDFromContext returns the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// tokenFromRequest reads a bearer token, falling back to the auth cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate attaches the token subject to the request context. Requests
// without credentials pass through anonymously; bad credentials are
// rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasCredentials := r.Header.Get("Authorization") != ""
		if _, err := r.Cookie(authCookieName); err == nil {
			hasCredentials = true
		}
		if !hasCredentials {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := parseToken(m.jwtSecret, tokenFromRequest(r))
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that Authenticate left anonymous.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			if isAPIRequest(r) {
				writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			} else {
				http.Redirect(w, r, "/auth/google/login", http.StatusTemporaryRedirect)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// RequestID propagates a caller's X-Request-Id or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequests writes one log line per request.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), RequestIDFromContext(r.Context()))
	})
}
