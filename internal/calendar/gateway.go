package calendar

import "context"

// Notification modes passed through to the provider's sendUpdates parameter.
const (
	NotifyAll  = "all"
	NotifyNone = "none"
)

// Gateway wraps the calendar provider. Implementations normalize provider
// errors: 404-class responses on get/delete are absent results, not errors,
// and other non-2xx responses surface as *domain.UpstreamError.
type Gateway interface {
	QueryFreeBusy(ctx context.Context, calendarID, startISO, endISO, timeZone string) (FreeBusy, error)
	InsertEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error)
	GetEvent(ctx context.Context, calendarID, id string) (*Event, error)
	PatchEvent(ctx context.Context, calendarID, id string, patch *EventPatch, notify string) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, id string) (bool, error)
	ListEvents(ctx context.Context, calendarID string, q ListQuery) (ListPage, error)
}

type BusyPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type FreeBusy struct {
	Busy      []BusyPeriod
	Available bool
}

type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
}

// Event is the provider-neutral event shape. Start and End are RFC3339
// strings; ID is provider-assigned and must be empty on insert.
type Event struct {
	ID                  string
	Summary             string
	Description         string
	Start               string
	End                 string
	TimeZone            string
	Status              string
	Transparency        string
	HTMLLink            string
	Attendees           []Attendee
	Private             map[string]string
	UseDefaultReminders bool
}

// EventPatch carries a partial update. Nil pointer fields are left untouched.
// SetPrivate upserts private extended properties; RemovePrivate deletes the
// named keys on the provider side.
type EventPatch struct {
	Summary             *string
	Status              *string
	SetPrivate          map[string]string
	RemovePrivate       []string
	UseDefaultReminders *bool
}

type ListQuery struct {
	// PrivateFilter matches private extended properties, e.g. "hold=true".
	PrivateFilter string
	TimeMin       string
	TimeMax       string
	PageToken     string
	PageSize      int64
}

type ListPage struct {
	Items         []*Event
	NextPageToken string
}
