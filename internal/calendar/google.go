package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/invizible/bookassist/internal/domain"
)

// Credentials holds the OAuth client plus the long-lived refresh token used
// to mint short-lived bearer tokens. No token is cached across process
// restarts; the oauth2 transport refreshes as needed.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
}

// GoogleGateway implements Gateway against the Google Calendar v3 API.
type GoogleGateway struct {
	service *gcal.Service
}

func NewGoogleGateway(ctx context.Context, creds Credentials) (*GoogleGateway, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: google oauth client id, secret and refresh token", domain.ErrConfiguration)
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  creds.RedirectURI,
		Scopes:       []string{gcal.CalendarScope},
	}
	client := conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleGateway{service: service}, nil
}

func (g *GoogleGateway) QueryFreeBusy(ctx context.Context, calendarID, startISO, endISO, timeZone string) (FreeBusy, error) {
	resp, err := g.service.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  startISO,
		TimeMax:  endISO,
		TimeZone: timeZone,
		Items:    []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return FreeBusy{}, upstreamError("freebusy query", err)
	}

	// The response may key the calendar by its canonical id rather than the
	// id we sent; fall back to the first entry.
	cal, ok := resp.Calendars[calendarID]
	if !ok {
		for _, c := range resp.Calendars {
			cal = c
			break
		}
	}

	busy := make([]BusyPeriod, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		busy = append(busy, BusyPeriod{Start: period.Start, End: period.End})
	}
	return FreeBusy{Busy: busy, Available: len(busy) == 0}, nil
}

func (g *GoogleGateway) InsertEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error) {
	body := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start, TimeZone: ev.TimeZone},
		End:         &gcal.EventDateTime{DateTime: ev.End, TimeZone: ev.TimeZone},
		Status:      ev.Status,
	}
	// The provider assigns the event id; ev.ID is deliberately never sent.
	if ev.Transparency != "" {
		body.Transparency = ev.Transparency
	}
	for _, a := range ev.Attendees {
		body.Attendees = append(body.Attendees, &gcal.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	if len(ev.Private) > 0 {
		body.ExtendedProperties = &gcal.EventExtendedProperties{Private: ev.Private}
	}
	if !ev.UseDefaultReminders {
		body.Reminders = &gcal.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		}
	}

	created, err := g.service.Events.Insert(calendarID, body).
		SendUpdates(NotifyNone).
		Context(ctx).
		Do()
	if err != nil {
		return nil, upstreamError("event insert", err)
	}
	return fromGoogleEvent(created), nil
}

func (g *GoogleGateway) GetEvent(ctx context.Context, calendarID, id string) (*Event, error) {
	ev, err := g.service.Events.Get(calendarID, id).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, upstreamError("event get", err)
	}
	return fromGoogleEvent(ev), nil
}

func (g *GoogleGateway) PatchEvent(ctx context.Context, calendarID, id string, patch *EventPatch, notify string) (*Event, error) {
	body := &gcal.Event{}
	if patch.Summary != nil {
		body.Summary = *patch.Summary
		if body.Summary == "" {
			body.ForceSendFields = append(body.ForceSendFields, "Summary")
		}
	}
	if patch.Status != nil {
		body.Status = *patch.Status
	}
	if len(patch.SetPrivate) > 0 || len(patch.RemovePrivate) > 0 {
		props := &gcal.EventExtendedProperties{Private: patch.SetPrivate}
		for _, key := range patch.RemovePrivate {
			props.NullFields = append(props.NullFields, "Private."+key)
		}
		body.ExtendedProperties = props
	}
	if patch.UseDefaultReminders != nil {
		body.Reminders = &gcal.EventReminders{
			UseDefault:      *patch.UseDefaultReminders,
			ForceSendFields: []string{"UseDefault"},
		}
	}
	if notify == "" {
		notify = NotifyAll
	}

	updated, err := g.service.Events.Patch(calendarID, id, body).
		SendUpdates(notify).
		Context(ctx).
		Do()
	if err != nil {
		return nil, upstreamError("event patch", err)
	}
	return fromGoogleEvent(updated), nil
}

// DeleteEvent is always silent: cancellation notifications are never sent.
// A 404/410 from the provider counts as already deleted.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, calendarID, id string) (bool, error) {
	err := g.service.Events.Delete(calendarID, id).
		SendUpdates(NotifyNone).
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, upstreamError("event delete", err)
	}
	return true, nil
}

func (g *GoogleGateway) ListEvents(ctx context.Context, calendarID string, q ListQuery) (ListPage, error) {
	call := g.service.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if q.PrivateFilter != "" {
		call = call.PrivateExtendedProperty(q.PrivateFilter)
	}
	if q.TimeMin != "" {
		call = call.TimeMin(q.TimeMin)
	}
	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}
	if q.PageSize > 0 {
		call = call.MaxResults(q.PageSize)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return ListPage{}, upstreamError("event list", err)
	}

	page := ListPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		page.Items = append(page.Items, fromGoogleEvent(item))
	}
	return page, nil
}

func fromGoogleEvent(ev *gcal.Event) *Event {
	out := &Event{
		ID:           ev.Id,
		Summary:      ev.Summary,
		Description:  ev.Description,
		Status:       ev.Status,
		Transparency: ev.Transparency,
		HTMLLink:     ev.HtmlLink,
	}
	if ev.Start != nil {
		out.Start = ev.Start.DateTime
		if out.Start == "" {
			out.Start = ev.Start.Date
		}
		out.TimeZone = ev.Start.TimeZone
	}
	if ev.End != nil {
		out.End = ev.End.DateTime
		if out.End == "" {
			out.End = ev.End.Date
		}
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	if ev.ExtendedProperties != nil && len(ev.ExtendedProperties.Private) > 0 {
		out.Private = ev.ExtendedProperties.Private
	}
	if ev.Reminders != nil {
		out.UseDefaultReminders = ev.Reminders.UseDefault
	}
	return out
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
}

func upstreamError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Error()
		}
		return &domain.UpstreamError{Status: gerr.Code, Message: op + ": " + msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}
