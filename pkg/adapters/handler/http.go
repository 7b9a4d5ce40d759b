package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

type HTTPHandler struct {
	service ports.LinkService
	baseURL string
}

func NewHTTPHandler(service ports.LinkService, baseURL string) *HTTPHandler {
	return &HTTPHandler{service: service, baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	URL            string  `json:"url"`
	OriginalURL    string  `json:"original_url,omitempty"`
	CustomCode     *string `json:"custom_code,omitempty"`
	Title          *string `json:"title,omitempty"`
	ExpiresInHours *uint32 `json:"expires_in_hours,omitempty"`
}

// LinkResponse is a stored link plus its public short URL
type LinkResponse struct {
	*domain.ShortLink
	ShortURL string `json:"short_url"`
}

func (h *HTTPHandler) toResponse(link *domain.ShortLink) LinkResponse {
	return LinkResponse{ShortLink: link, ShortURL: h.baseURL + "/" + link.Code}
}

func requesterID(r *http.Request) *string {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	target := req.URL
	if target == "" {
		target = req.OriginalURL
	}
	code := req.CustomCode
	if code != nil && strings.TrimSpace(*code) == "" {
		code = nil
	}

	link, err := h.service.Create(r.Context(), ports.CreateLinkInput{
		TargetURL: target,
		Code:      code,
		OwnerID:   requesterID(r),
		Title:     req.Title,
		TTLHours:  req.ExpiresInHours,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(link))
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "short code missing")
		return
	}

	target, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Info returns link metadata without counting a visit
func (h *HTTPHandler) Info(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetInfo(r.Context(), r.PathValue("short_code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("short_code"), requesterID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Me returns the authenticated user's id
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id})
}

// MyLinks lists the authenticated user's links
func (h *HTTPHandler) MyLinks(w http.ResponseWriter, r *http.Request) {
	owner, _ := UserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	links, count, err := h.service.ListByOwner(r.Context(), owner, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]LinkResponse, 0, len(links))
	for i := range links {
		data = append(data, h.toResponse(&links[i]))
	}

	resp := map[string]interface{}{
		"data":  data,
		"total": count,
		"page":  page,
		"limit": limit,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := map[string]string{
			"message":  "ok",
			"database": "ok",
		}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				res["message"] = "degraded"
				res["database"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, res)
	}
}
