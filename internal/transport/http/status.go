package http

import (
	"context"
	"net/http"

	"github.com/invizible/bookassist/internal/app"
)

type StatusReporter interface {
	ListHolds(ctx context.Context, in app.ListHoldsInput) (app.ListHoldsResult, error)
	ListEvents(ctx context.Context, in app.ListEventsInput) (app.ListEventsResult, error)
}

type holdsStatusResponse struct {
	OK bool `json:"ok"`
	app.ListHoldsResult
}

// HandleHoldsStatus is the read-only hold listing for operators.
func HandleHoldsStatus(svc StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}

		q := r.URL.Query()
		result, err := svc.ListHolds(r.Context(), app.ListHoldsInput{
			CalendarID:       q.Get("calendarId"),
			Limit:            intParam(q.Get("limit"), 200),
			SinceDays:        intParam(q.Get("sinceDays"), 1),
			HorizonDays:      intParam(q.Get("horizonDays"), 60),
			IncludeCancelled: boolParam(q.Get("includeCancelled")),
			IncludeExpired:   boolParam(q.Get("includeExpired")),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, holdsStatusResponse{OK: true, ListHoldsResult: result})
	}
}

type eventsListResponse struct {
	OK bool `json:"ok"`
	app.ListEventsResult
}

// HandleEventsList is the general event listing, not restricted to holds.
func HandleEventsList(svc StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}

		q := r.URL.Query()
		result, err := svc.ListEvents(r.Context(), app.ListEventsInput{
			CalendarID:       q.Get("calendarId"),
			SinceDays:        intParam(q.Get("sinceDays"), 1),
			HorizonDays:      intParam(q.Get("horizonDays"), 7),
			IncludeCancelled: boolParam(q.Get("includeCancelled")),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eventsListResponse{OK: true, ListEventsResult: result})
	}
}
