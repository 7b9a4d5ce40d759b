package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

// NewRouter creates and configures the main application router. A nil
// limiter disables API rate limiting.
func NewRouter(cfg *config.Config, service ports.LinkService, limiter ports.RateLimiter, db Pinger) http.Handler {
	h := NewHTTPHandler(service, cfg.BaseURL)
	mw := NewMiddleware(cfg)
	authHandler := NewAuthHandler(cfg)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", Health(db))
	mux.HandleFunc("GET /{short_code}", h.Redirect) // not rate limited
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// API Routes; a token is optional except under /me and /auth
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/v1/links", h.Create)
	apiMux.HandleFunc("GET /api/v1/links/{short_code}", h.Info)
	apiMux.HandleFunc("DELETE /api/v1/links/{short_code}", h.Delete)
	apiMux.HandleFunc("GET /api/v1/stats", h.Stats)
	apiMux.Handle("GET /api/v1/me", mw.RequireAuth(http.HandlerFunc(h.Me)))
	apiMux.Handle("GET /api/v1/me/links", mw.RequireAuth(http.HandlerFunc(h.MyLinks)))
	apiMux.Handle("POST /api/v1/auth/refresh", mw.RequireAuth(http.HandlerFunc(authHandler.Refresh)))

	api := mw.Authenticate(apiMux)
	if limiter != nil {
		api = RateLimit(limiter, DefaultKeyFunc("X-API-Key", cfg.TrustProxy))(api)
	}
	mux.Handle("/api/v1/", api)

	return RequestID(LogRequests(SecurityHeaders(mux)))
}
