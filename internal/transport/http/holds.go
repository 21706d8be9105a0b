package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/invizible/bookassist/internal/app"
	"github.com/invizible/bookassist/internal/domain"
)

// HoldManager is the service surface the hold endpoint needs.
type HoldManager interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
	GetHold(ctx context.Context, calendarID, id string) (domain.Hold, error)
	ReleaseHold(ctx context.Context, calendarID, id string) (bool, error)
}

type createHoldRequest struct {
	CalendarID  string   `json:"calendarId"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	TimeZone    string   `json:"timeZone"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Topic       string   `json:"topic"`
	Attendees   []string `json:"attendees"`
	TTLMinutes  int      `json:"ttlMinutes"`
}

type holdPayload struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	HTMLLink   string `json:"htmlLink,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	ExpiresAt  string `json:"expiresAt,omitempty"`

	Attendees []attendeePayload `json:"attendees,omitempty"`
	Private   map[string]string `json:"private,omitempty"`
}

type attendeePayload struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus"`
}

type holdResponse struct {
	OK   bool        `json:"ok"`
	Hold holdPayload `json:"hold"`
}

type releaseResponse struct {
	OK       bool   `json:"ok"`
	Released bool   `json:"released"`
	ID       string `json:"id"`
}

// HandleHold serves POST (create), GET (lookup) and DELETE (release) on the
// hold endpoint.
func HandleHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleCreateHold(w, r, svc)
		case http.MethodGet:
			handleGetHold(w, r, svc)
		case http.MethodDelete:
			handleReleaseHold(w, r, svc)
		default:
			methodNotAllowed(w, "POST, GET, DELETE")
		}
	}
}

func handleCreateHold(w http.ResponseWriter, r *http.Request, svc HoldManager) {
	var req createHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Start == "" || req.End == "" {
		writeError(w, http.StatusBadRequest, "`start` and `end` are required")
		return
	}

	hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
		CalendarID:  req.CalendarID,
		Start:       req.Start,
		End:         req.End,
		TimeZone:    req.TimeZone,
		Summary:     req.Summary,
		Description: req.Description,
		Name:        req.Name,
		Email:       req.Email,
		Topic:       req.Topic,
		Attendees:   req.Attendees,
		TTLMinutes:  req.TTLMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, holdResponse{OK: true, Hold: toHoldPayload(hold)})
}

func handleGetHold(w http.ResponseWriter, r *http.Request, svc HoldManager) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "`id` is required")
		return
	}

	hold, err := svc.GetHold(r.Context(), r.URL.Query().Get("calendarId"), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, holdResponse{OK: true, Hold: toHoldPayload(hold)})
}

func handleReleaseHold(w http.ResponseWriter, r *http.Request, svc HoldManager) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "`id` is required")
		return
	}

	released, err := svc.ReleaseHold(r.Context(), r.URL.Query().Get("calendarId"), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !released {
		writeError(w, http.StatusNotFound, "Hold not found")
		return
	}

	writeJSON(w, http.StatusOK, releaseResponse{OK: true, Released: true, ID: id})
}

func toHoldPayload(hold domain.Hold) holdPayload {
	payload := holdPayload{
		ID:         hold.ID,
		CalendarID: hold.CalendarID,
		HTMLLink:   hold.HTMLLink,
		Summary:    hold.Summary,
		Start:      hold.Start,
		End:        hold.End,
		Status:     hold.Status,
		ExpiresAt:  hold.ExpiresAt,
		Private:    hold.Private,
	}
	for _, a := range hold.Attendees {
		payload.Attendees = append(payload.Attendees, attendeePayload{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return payload
}
