package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg, StatusCode: status})
}

// statusFor maps an engine error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidURL, domain.KindInvalidCode:
		return http.StatusBadRequest
	case domain.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindAllocationExhausted:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if kind == domain.KindRateLimited {
		var de *domain.Error
		if errors.As(err, &de) && de.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(de.RetryAfter.Seconds())))
		}
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed request_id=%s: %v", r.Method, r.URL.Path, RequestIDFromContext(r.Context()), err)
		msg = "internal server error"
	}
	writeErrorMessage(w, status, kind.String(), msg)
}
