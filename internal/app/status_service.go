package app

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/clock"
	"github.com/invizible/bookassist/internal/domain"
)

const (
	statusPageSize          = 500
	defaultStatusLimit      = 200
	maxStatusLimit          = 5000
	eventsPageSize          = 250
	defaultEventHorizonDays = 7
)

// StatusService provides read-only views over holds and calendar events.
// It applies the same window and paging discipline as the sweep but never
// writes.
type StatusService struct {
	gateway    calendar.Gateway
	clock      clock.Clock
	calendarID string
}

func NewStatusService(gw calendar.Gateway, clk clock.Clock, defaultCalendar string) *StatusService {
	if defaultCalendar == "" {
		defaultCalendar = defaultCalendarID
	}
	return &StatusService{gateway: gw, clock: clk, calendarID: defaultCalendar}
}

type ListHoldsInput struct {
	CalendarID       string
	Limit            int
	SinceDays        int
	HorizonDays      int
	IncludeCancelled bool
	IncludeExpired   bool
}

type HoldSummary struct {
	ID                string `json:"id"`
	Summary           string `json:"summary"`
	Status            string `json:"status"`
	Start             string `json:"start"`
	End               string `json:"end"`
	HoldTag           string `json:"holdId,omitempty"`
	AutoCancelAt      string `json:"autoCancelAt,omitempty"`
	AttendeesAccepted bool   `json:"attendeesAccepted"`
	ExpiresInMinutes  *int   `json:"expiresInMinutes"`
}

type ListHoldsResult struct {
	CalendarID  string        `json:"calendarId"`
	Now         string        `json:"now"`
	SinceDays   int           `json:"sinceDays"`
	HorizonDays int           `json:"horizonDays"`
	Limit       int           `json:"limit"`
	Count       int           `json:"count"`
	Holds       []HoldSummary `json:"holds"`
}

func (s *StatusService) ListHolds(ctx context.Context, in ListHoldsInput) (ListHoldsResult, error) {
	calendarID := s.resolveCalendar(in.CalendarID)
	limit := in.Limit
	if limit <= 0 {
		limit = defaultStatusLimit
	}
	if limit > maxStatusLimit {
		limit = maxStatusLimit
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
	result := ListHoldsResult{
		CalendarID:  calendarID,
		Now:         now.UTC().Format(time.RFC3339),
		SinceDays:   sinceDays,
		HorizonDays: horizonDays,
		Limit:       limit,
		Holds:       []HoldSummary{},
	}
	timeMin := now.AddDate(0, 0, -sinceDays).UTC().Format(time.RFC3339)
	timeMax := now.AddDate(0, 0, horizonDays).UTC().Format(time.RFC3339)

	pageToken := ""
	for {
		page, err := s.gateway.ListEvents(ctx, calendarID, calendar.ListQuery{
			PrivateFilter: domain.PropHold + "=true",
			TimeMin:       timeMin,
			TimeMax:       timeMax,
			PageToken:     pageToken,
			PageSize:      statusPageSize,
		})
		if err != nil {
			return result, err
		}

		for _, ev := range page.Items {
			if len(result.Holds) >= limit {
				break
			}

			autoCancelAt := ev.Private[domain.PropAutoCancelAt]
			var expiresIn *int
			expired := false
			if autoCancelAt != "" {
				if expiresAt, err := time.Parse(time.RFC3339, autoCancelAt); err == nil {
					minutes := int(math.Round(expiresAt.Sub(now).Minutes()))
					expiresIn = &minutes
					expired = !expiresAt.After(now)
				}
			}
			cancelled := ev.Status == domain.StatusCancelled

			if cancelled && !in.IncludeCancelled {
				continue
			}
			if expired && !in.IncludeExpired {
				continue
			}

			result.Holds = append(result.Holds, HoldSummary{
				ID:                ev.ID,
				Summary:           ev.Summary,
				Status:            ev.Status,
				Start:             ev.Start,
				End:               ev.End,
				HoldTag:           ev.Private[domain.PropHoldID],
				AutoCancelAt:      autoCancelAt,
				AttendeesAccepted: eventAccepted(ev),
				ExpiresInMinutes:  expiresIn,
			})
		}

		if len(result.Holds) >= limit {
			break
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	result.Count = len(result.Holds)
	return result, nil
}

type ListEventsInput struct {
	CalendarID       string
	SinceDays        int
	HorizonDays      int
	IncludeCancelled bool
}

type EventSummary struct {
	ID      string            `json:"id"`
	Summary string            `json:"summary"`
	Status  string            `json:"status"`
	Start   string            `json:"start"`
	End     string            `json:"end"`
	Private map[string]string `json:"private,omitempty"`
}

type ListEventsResult struct {
	CalendarID  string         `json:"calendarId"`
	SinceDays   int            `json:"sinceDays"`
	HorizonDays int            `json:"horizonDays"`
	Count       int            `json:"count"`
	Events      []EventSummary `json:"events"`
}

// ListEvents is a general event listing without the hold filter, used by the
// operator-facing listing endpoint.
func (s *StatusService) ListEvents(ctx context.Context, in ListEventsInput) (ListEventsResult, error) {
	calendarID := s.resolveCalendar(in.CalendarID)
	sinceDays := in.SinceDays
	if sinceDays < 0 {
		sinceDays = 0
	}
	horizonDays := in.HorizonDays
	if horizonDays <= 0 {
		horizonDays = defaultEventHorizonDays
	}

	now := s.clock.Now()
	result := ListEventsResult{
		CalendarID:  calendarID,
		SinceDays:   sinceDays,
		HorizonDays: horizonDays,
		Events:      []EventSummary{},
	}
	timeMin := now.AddDate(0, 0, -sinceDays).UTC().Format(time.RFC3339)
	timeMax := now.AddDate(0, 0, horizonDays).UTC().Format(time.RFC3339)

	pageToken := ""
	for {
		page, err := s.gateway.ListEvents(ctx, calendarID, calendar.ListQuery{
			TimeMin:   timeMin,
			TimeMax:   timeMax,
			PageToken: pageToken,
			PageSize:  eventsPageSize,
		})
		if err != nil {
			return result, err
		}

		for _, ev := range page.Items {
			if ev.Status == domain.StatusCancelled && !in.IncludeCancelled {
				continue
			}
			result.Events = append(result.Events, EventSummary{
				ID:      ev.ID,
				Summary: ev.Summary,
				Status:  ev.Status,
				Start:   ev.Start,
				End:     ev.End,
				Private: ev.Private,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	result.Count = len(result.Events)
	return result, nil
}

func (s *StatusService) resolveCalendar(calendarID string) string {
	if trimmed := strings.TrimSpace(calendarID); trimmed != "" {
		return trimmed
	}
	return s.calendarID
}
