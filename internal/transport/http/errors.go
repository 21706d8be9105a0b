package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/invizible/bookassist/internal/domain"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, err := json.Marshal(payload)
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"error":"internal encoding error"}`))
		return
	}
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy to HTTP statuses. Provider errors
// pass their message through verbatim for diagnosability.
func writeDomainError(w http.ResponseWriter, err error) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSlotBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, "Hold not found")
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, upstream.Message)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
