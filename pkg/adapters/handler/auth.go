package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthHandler signs users in with Google and issues the JWT that carries
// their link ownership identity.
type AuthHandler struct {
	oauthConfig   *oauth2.Config
	userInfoURL   string
	jwtSecret     []byte
	tokenTTL      time.Duration
	frontendURL   string
	allowedEmails []string
	isProduction  bool
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	ttl := cfg.JWTExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL:   googleUserInfoURL,
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenTTL:      ttl,
		frontendURL:   cfg.FrontendURL,
		allowedEmails: cfg.AllowedEmails,
		isProduction:  cfg.IsProduction(),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := h.generateStateOauthCookie(w)
	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	oauthState, err := r.Cookie("oauthstate")
	if err != nil {
		log.Printf("Callback error: missing oauthstate cookie: %v", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	if r.FormValue("state") != oauthState.Value {
		log.Printf("Callback error: invalid oauth state")
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid oauth google state")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Printf("Callback error: code exchange failed: %v", err)
		writeErrorMessage(w, http.StatusBadGateway, "oauth_failed", "code exchange failed")
		return
	}

	response, err := h.oauthConfig.Client(r.Context(), token).Get(h.userInfoURL)
	if err != nil {
		log.Printf("Callback error: failed getting user info: %v", err)
		writeErrorMessage(w, http.StatusBadGateway, "oauth_failed", "failed getting user info")
		return
	}
	defer response.Body.Close()

	var googleUser GoogleUser
	if err := json.NewDecoder(response.Body).Decode(&googleUser); err != nil {
		log.Printf("Callback error: failed decoding user info: %v", err)
		writeErrorMessage(w, http.StatusBadGateway, "oauth_failed", "failed decoding user info")
		return
	}

	if googleUser.Email == "" || !googleUser.VerifiedEmail {
		writeErrorMessage(w, http.StatusForbidden, "forbidden", "a verified google email is required")
		return
	}
	if len(h.allowedEmails) > 0 && !slices.Contains(h.allowedEmails, googleUser.Email) {
		log.Printf("Callback error: email %s not in allowlist", googleUser.Email)
		writeErrorMessage(w, http.StatusForbidden, "forbidden", "access denied: your email is not in the allowlist")
		return
	}

	if _, ok := h.setAuthCookie(w, googleUser.Email); !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	log.Printf("Login successful for user: %s", googleUser.Email)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

// Refresh issues a fresh token for an already authenticated user.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	subject, _ := UserIDFromContext(r.Context())
	resp, ok := h.setAuthCookie(w, subject)
	if !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

// TokenResponse is returned by the refresh endpoint
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, subject string) (TokenResponse, bool) {
	tokenString, expiresAt, err := IssueToken(h.jwtSecret, subject, h.tokenTTL)
	if err != nil {
		log.Printf("failed signing JWT: %v", err)
		return TokenResponse{}, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    tokenString,
		Expires:  expiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return TokenResponse{Token: tokenString, ExpiresAt: expiresAt}, true
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, &cookie)
	return state
}
