package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/invizible/bookassist/internal/app"
)

// CronTriggerHeader is set by trusted platform schedulers; requests carrying
// it bypass the shared-secret check.
const CronTriggerHeader = "X-Cron-Trigger"

// SweepSecretHeader carries the shared secret for manual invocations, as an
// alternative to the ?secret= query parameter.
const SweepSecretHeader = "X-Sweep-Secret"

type Sweeper interface {
	Sweep(ctx context.Context, in app.SweepInput) (app.SweepResult, error)
}

type sweepResponse struct {
	OK bool `json:"ok"`
	app.SweepResult
}

// HandleSweep triggers a reconciliation pass. Scheduled callers are trusted
// via the platform cron header; everyone else must present the shared secret.
func HandleSweep(svc Sweeper, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			methodNotAllowed(w, "GET, POST")
			return
		}

		if r.Header.Get(CronTriggerHeader) == "" {
			supplied := r.URL.Query().Get("secret")
			if supplied == "" {
				supplied = r.Header.Get(SweepSecretHeader)
			}
			if secret == "" || supplied != secret {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		q := r.URL.Query()
		// Floors mirror the defaults-vs-explicit-zero split: an absent
		// parameter gets the default, an explicit 0 clamps to the minimum
		// (1 for limit and horizonDays, 0 for sinceDays).
		limit := intParam(q.Get("limit"), 1000)
		if limit < 1 {
			limit = 1
		}
		sinceDays := intParam(q.Get("sinceDays"), 1)
		if sinceDays < 0 {
			sinceDays = 0
		}
		horizonDays := intParam(q.Get("horizonDays"), 60)
		if horizonDays < 1 {
			horizonDays = 1
		}
		in := app.SweepInput{
			CalendarID:  q.Get("calendarId"),
			DryRun:      boolParam(q.Get("dryRun")),
			SendUpdates: q.Get("sendUpdates"),
			Limit:       limit,
			SinceDays:   sinceDays,
			HorizonDays: horizonDays,
		}

		result, err := svc.Sweep(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sweepResponse{OK: true, SweepResult: result})
	}
}

func boolParam(v string) bool {
	return v == "1" || v == "true"
}

// intParam returns def when the parameter is absent or malformed; an
// explicit "0" is honored.
func intParam(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
