package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/chat"
	"github.com/invizible/bookassist/internal/domain"
	"github.com/invizible/bookassist/internal/timeutil"
)

type availabilityRequest struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	CalendarID string `json:"calendarId"`
	TimeZone   string `json:"timeZone"`
}

type availabilityResponse struct {
	OK         bool                  `json:"ok"`
	CalendarID string                `json:"calendarId"`
	Available  bool                  `json:"available"`
	BusySlots  []calendar.BusyPeriod `json:"busySlots"`
}

// HandleAvailability is the public free/busy check the booking widget calls
// before offering a slot. Read-only, so it needs no secret.
func HandleAvailability(gw chat.AvailabilityChecker, defaultCalendarID, defaultTimeZone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}

		var req availabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.Start == "" || req.End == "" {
			writeError(w, http.StatusBadRequest, "`start` and `end` are required")
			return
		}

		startISO, err := timeutil.NormalizeTimestamp(req.Start)
		if err != nil {
			writeDomainError(w, fmt.Errorf("%w: start: %v", domain.ErrInvalidRange, err))
			return
		}
		endISO, err := timeutil.NormalizeTimestamp(req.End)
		if err != nil {
			writeDomainError(w, fmt.Errorf("%w: end: %v", domain.ErrInvalidRange, err))
			return
		}

		calendarID := strings.TrimSpace(req.CalendarID)
		if calendarID == "" {
			calendarID = defaultCalendarID
		}
		tz := timeutil.NormalizeTimeZone(req.TimeZone, defaultTimeZone)

		freeBusy, err := gw.QueryFreeBusy(r.Context(), calendarID, startISO, endISO, tz)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		busy := freeBusy.Busy
		if busy == nil {
			busy = []calendar.BusyPeriod{}
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			OK:         true,
			CalendarID: calendarID,
			Available:  freeBusy.Available,
			BusySlots:  busy,
		})
	}
}
