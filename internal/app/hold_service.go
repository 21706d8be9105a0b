package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/clock"
	"github.com/invizible/bookassist/internal/domain"
	"github.com/invizible/bookassist/internal/timeutil"
)

const (
	defaultHoldTTL    = 20 * time.Minute
	defaultCalendarID = "primary"
	defaultTimeZone   = "America/Vancouver"
)

// HoldService creates, fetches and releases tentative calendar holds.
// Creation is not idempotent: every call inserts a new event, and the
// provider assigns the id. Callers that retry must dedupe themselves.
type HoldService struct {
	gateway    calendar.Gateway
	clock      clock.Clock
	calendarID string
	timeZone   string
	holdTTL    time.Duration
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithDefaultCalendar sets the calendar used when a request names none.
func WithDefaultCalendar(id string) HoldServiceOption {
	return func(s *HoldService) {
		if id != "" {
			s.calendarID = id
		}
	}
}

// WithDefaultTimeZone sets the fallback zone for unrecognized input.
func WithDefaultTimeZone(tz string) HoldServiceOption {
	return func(s *HoldService) {
		if tz != "" {
			s.timeZone = tz
		}
	}
}

func NewHoldService(gw calendar.Gateway, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		gateway:    gw,
		clock:      clk,
		calendarID: defaultCalendarID,
		timeZone:   defaultTimeZone,
		holdTTL:    defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateHoldInput struct {
	CalendarID  string
	Start       string
	End         string
	TimeZone    string
	Summary     string
	Description string
	Name        string
	Email       string
	Topic       string
	Attendees   []string
	TTLMinutes  int
}

func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	start, err := timeutil.ParseTimestamp(in.Start)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("%w: start: %v", domain.ErrInvalidRange, err)
	}
	end, err := timeutil.ParseTimestamp(in.End)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("%w: end: %v", domain.ErrInvalidRange, err)
	}
	if !end.After(start) {
		return domain.Hold{}, fmt.Errorf("%w: end must be after start", domain.ErrInvalidRange)
	}

	startISO := start.UTC().Format(time.RFC3339)
	endISO := end.UTC().Format(time.RFC3339)
	tz := timeutil.NormalizeTimeZone(in.TimeZone, s.timeZone)
	calendarID := s.resolveCalendar(in.CalendarID)

	// Best-effort availability gate; a race with another booking between this
	// check and the insert is accepted.
	freeBusy, err := s.gateway.QueryFreeBusy(ctx, calendarID, startISO, endISO, tz)
	if err != nil {
		return domain.Hold{}, err
	}
	if !freeBusy.Available {
		return domain.Hold{}, domain.ErrSlotBusy
	}

	now := s.clock.Now()
	ttl := s.holdTTL
	if in.TTLMinutes > 0 {
		ttl = time.Duration(in.TTLMinutes) * time.Minute
	}
	expiresAt := now.Add(ttl).UTC().Format(time.RFC3339)
	holdTag := timeutil.DeriveHoldTag(startISO, endISO, in.Email)

	created, err := s.gateway.InsertEvent(ctx, calendarID, &calendar.Event{
		Summary:      s.holdSummary(in),
		Description:  holdDescription(in, expiresAt),
		Start:        startISO,
		End:          endISO,
		TimeZone:     tz,
		Status:       domain.StatusTentative,
		Transparency: "opaque",
		Attendees:    holdAttendees(in),
		Private: map[string]string{
			domain.PropHold:         "true",
			domain.PropHoldID:       holdTag,
			domain.PropAutoCancelAt: expiresAt,
			domain.PropCreatedAt:    now.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return domain.Hold{}, err
	}

	return domain.Hold{
		ID:         created.ID,
		CalendarID: calendarID,
		HTMLLink:   created.HTMLLink,
		Summary:    created.Summary,
		Start:      created.Start,
		End:        created.End,
		TimeZone:   tz,
		Status:     created.Status,
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *HoldService) GetHold(ctx context.Context, calendarID, id string) (domain.Hold, error) {
	calendarID = s.resolveCalendar(calendarID)
	ev, err := s.gateway.GetEvent(ctx, calendarID, id)
	if err != nil {
		return domain.Hold{}, err
	}
	if ev == nil {
		return domain.Hold{}, domain.ErrHoldNotFound
	}

	hold := domain.Hold{
		ID:         ev.ID,
		CalendarID: calendarID,
		HTMLLink:   ev.HTMLLink,
		Summary:    ev.Summary,
		Start:      ev.Start,
		End:        ev.End,
		TimeZone:   ev.TimeZone,
		Status:     ev.Status,
		ExpiresAt:  ev.Private[domain.PropAutoCancelAt],
		Private:    ev.Private,
	}
	for _, a := range ev.Attendees {
		hold.Attendees = append(hold.Attendees, domain.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return hold, nil
}

// ReleaseHold deletes a hold. Releasing an absent hold returns false without
// error, so repeated releases are safe.
func (s *HoldService) ReleaseHold(ctx context.Context, calendarID, id string) (bool, error) {
	return s.gateway.DeleteEvent(ctx, s.resolveCalendar(calendarID), id)
}

func (s *HoldService) resolveCalendar(calendarID string) string {
	if trimmed := strings.TrimSpace(calendarID); trimmed != "" {
		return trimmed
	}
	return s.calendarID
}

func (s *HoldService) holdSummary(in CreateHoldInput) string {
	if strings.TrimSpace(in.Summary) != "" {
		return in.Summary
	}
	requester := strings.TrimSpace(in.Name)
	if requester == "" {
		requester = in.Email
	}
	if requester == "" {
		requester = "Guest"
	}
	return "HOLD: " + requester
}

func holdDescription(in CreateHoldInput, expiresAt string) string {
	lines := []string{"Provisional hold requested via API."}
	if in.Description != "" {
		lines = append(lines, in.Description)
	}
	if in.Topic != "" {
		lines = append(lines, "Topic: "+in.Topic)
	}
	if in.Email != "" {
		requester := in.Email
		if in.Name != "" {
			requester = fmt.Sprintf("%s <%s>", in.Name, in.Email)
		}
		lines = append(lines, "Requester: "+requester)
	}
	lines = append(lines, "Auto-cancel at: "+expiresAt)
	return strings.Join(lines, "\n")
}

func holdAttendees(in CreateHoldInput) []calendar.Attendee {
	var attendees []calendar.Attendee
	if in.Email != "" {
		attendees = append(attendees, calendar.Attendee{
			Email:          in.Email,
			DisplayName:    in.Name,
			ResponseStatus: "needsAction",
		})
	}
	for _, email := range in.Attendees {
		email = strings.TrimSpace(email)
		if email == "" || email == in.Email {
			continue
		}
		attendees = append(attendees, calendar.Attendee{
			Email:          email,
			ResponseStatus: "needsAction",
		})
	}
	return attendees
}
