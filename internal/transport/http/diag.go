package http

import (
	"net/http"
	"time"

	"github.com/invizible/bookassist/internal/chat"
)

type diagResponse struct {
	OK         bool   `json:"ok"`
	CalendarID string `json:"calendarId"`
	TimeZone   string `json:"timeZone"`
	Window     string `json:"window"`
	Available  bool   `json:"available"`
	BusyCount  int    `json:"busyCount"`
}

// HandleDiagCalendar probes the calendar connection with a one-hour
// free/busy query. Guarded by the same shared secret as the sweep.
func HandleDiagCalendar(gw chat.AvailabilityChecker, secret, calendarID, timeZone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		supplied := r.URL.Query().Get("secret")
		if supplied == "" {
			supplied = r.Header.Get(SweepSecretHeader)
		}
		if secret == "" || supplied != secret {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		now := time.Now().UTC()
		startISO := now.Format(time.RFC3339)
		endISO := now.Add(time.Hour).Format(time.RFC3339)

		freeBusy, err := gw.QueryFreeBusy(r.Context(), calendarID, startISO, endISO, timeZone)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, diagResponse{
			OK:         true,
			CalendarID: calendarID,
			TimeZone:   timeZone,
			Window:     startISO + " .. " + endISO,
			Available:  freeBusy.Available,
			BusyCount:  len(freeBusy.Busy),
		})
	}
}
