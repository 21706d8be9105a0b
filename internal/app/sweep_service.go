package app

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/clock"
	"github.com/invizible/bookassist/internal/domain"
)

const (
	sweepPageSize      = 500
	defaultSweepLimit  = 1000
	maxSweepLimit      = 10000
	defaultHorizonDays = 60
)

var holdLabelPattern = regexp.MustCompile(`(?i)^HOLD:\s*`)

// SweepService reconciles tentative holds: attendee acceptance confirms a
// hold, an elapsed autoCancelAt deletes it. Both transitions clear the
// hold=true marker the listing filter matches on, so an immediate re-run
// finds nothing left to do and concurrent sweeps are merely redundant.
type SweepService struct {
	gateway    calendar.Gateway
	clock      clock.Clock
	calendarID string
}

func NewSweepService(gw calendar.Gateway, clk clock.Clock, defaultCalendar string) *SweepService {
	if defaultCalendar == "" {
		defaultCalendar = defaultCalendarID
	}
	return &SweepService{gateway: gw, clock: clk, calendarID: defaultCalendar}
}

type SweepInput struct {
	CalendarID  string
	DryRun      bool
	SendUpdates string
	Limit       int
	SinceDays   int
	HorizonDays int
}

type SweepResult struct {
	CalendarID  string `json:"calendarId"`
	Now         string `json:"now"`
	DryRun      bool   `json:"dryRun"`
	SendUpdates string `json:"sendUpdates"`
	Limit       int    `json:"limit"`
	SinceDays   int    `json:"sinceDays"`
	HorizonDays int    `json:"horizonDays"`

	Examined     int `json:"examined"`
	Confirmed    int `json:"confirmed"`
	Deleted      int `json:"deleted"`
	WouldConfirm int `json:"wouldConfirm"`
	WouldDelete  int `json:"wouldDelete"`

	ConfirmedIDs    []string `json:"confirmedIds"`
	DeletedIDs      []string `json:"deletedIds"`
	WouldConfirmIDs []string `json:"wouldConfirmIds"`
	WouldDeleteIDs  []string `json:"wouldDeleteIds"`
}

// Sweep runs one reconciliation pass. A patch or delete failure that is not a
// not-found aborts the pass with the counters accumulated so far; callers
// re-run the sweep, which is safe because transitions are idempotent by
// effect.
func (s *SweepService) Sweep(ctx context.Context, in SweepInput) (SweepResult, error) {
	calendarID := in.CalendarID
	if strings.TrimSpace(calendarID) == "" {
		calendarID = s.calendarID
	}
	sendUpdates := calendar.NotifyAll
	if in.SendUpdates == calendar.NotifyNone {
		sendUpdates = calendar.NotifyNone
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	if limit > maxSweepLimit {
		limit = maxSweepLimit
	}
	sinceDays := in.SinceDays
	if sinceDays < 0 {
		sinceDays = 0
	}
	horizonDays := in.HorizonDays
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}

	now := s.clock.Now()
	nowISO := now.UTC().Format(time.RFC3339)
	timeMin := now.AddDate(0, 0, -sinceDays).UTC().Format(time.RFC3339)
	timeMax := now.AddDate(0, 0, horizonDays).UTC().Format(time.RFC3339)

	result := SweepResult{
		CalendarID:  calendarID,
		Now:         nowISO,
		DryRun:      in.DryRun,
		SendUpdates: sendUpdates,
		Limit:       limit,
		SinceDays:   sinceDays,
		HorizonDays: horizonDays,

		ConfirmedIDs:    []string{},
		DeletedIDs:      []string{},
		WouldConfirmIDs: []string{},
		WouldDeleteIDs:  []string{},
	}

	pageToken := ""
	for {
		page, err := s.gateway.ListEvents(ctx, calendarID, calendar.ListQuery{
			PrivateFilter: domain.PropHold + "=true",
			TimeMin:       timeMin,
			TimeMax:       timeMax,
			PageToken:     pageToken,
			PageSize:      sweepPageSize,
		})
		if err != nil {
			return result, err
		}

		for _, ev := range page.Items {
			if result.Examined >= limit {
				break
			}
			result.Examined++

			// Acceptance wins over expiry: a guest who accepted just before
			// the deadline gets a confirmation, not a deletion.
			if eventAccepted(ev) {
				if in.DryRun {
					result.WouldConfirm++
					result.WouldConfirmIDs = append(result.WouldConfirmIDs, ev.ID)
					continue
				}
				if _, err := s.gateway.PatchEvent(ctx, calendarID, ev.ID, confirmPatch(ev, nowISO), sendUpdates); err != nil {
					return result, err
				}
				result.Confirmed++
				result.ConfirmedIDs = append(result.ConfirmedIDs, ev.ID)
				continue
			}

			autoCancelAt := ev.Private[domain.PropAutoCancelAt]
			if autoCancelAt == "" {
				continue
			}
			expiresAt, err := time.Parse(time.RFC3339, autoCancelAt)
			if err != nil || expiresAt.After(now) {
				continue
			}
			if in.DryRun {
				result.WouldDelete++
				result.WouldDeleteIDs = append(result.WouldDeleteIDs, ev.ID)
				continue
			}
			// Expiry deletions are always silent. A not-found means another
			// sweep got there first; count it as deleted.
			if _, err := s.gateway.DeleteEvent(ctx, calendarID, ev.ID); err != nil {
				return result, err
			}
			result.Deleted++
			result.DeletedIDs = append(result.DeletedIDs, ev.ID)
		}

		if result.Examined >= limit {
			break
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

func eventAccepted(ev *calendar.Event) bool {
	for _, a := range ev.Attendees {
		if a.Email != "" && a.ResponseStatus == "accepted" {
			return true
		}
	}
	return false
}

// confirmPatch strips the hold markers, records the confirmation, restores
// default reminders and drops a leading "HOLD:" label from the summary.
func confirmPatch(ev *calendar.Event, nowISO string) *calendar.EventPatch {
	status := domain.StatusConfirmed
	useDefault := true
	patch := &calendar.EventPatch{
		Status: &status,
		SetPrivate: map[string]string{
			domain.PropConfirmedFromHold: "true",
			domain.PropConfirmedAt:       nowISO,
		},
		RemovePrivate: []string{
			domain.PropHold,
			domain.PropHoldID,
			domain.PropAutoCancelAt,
		},
		UseDefaultReminders: &useDefault,
	}

	cleaned := strings.TrimSpace(holdLabelPattern.ReplaceAllString(ev.Summary, ""))
	if cleaned != "" && cleaned != ev.Summary {
		patch.Summary = &cleaned
	}
	return patch
}
