package domain

// Event status values as reported by the calendar provider.
const (
	StatusTentative = "tentative"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Private extended-property keys that mark an event as a managed hold.
// PropHold is the sole discriminator used when listing and sweeping.
const (
	PropHold              = "hold"
	PropHoldID            = "holdId"
	PropAutoCancelAt      = "autoCancelAt"
	PropCreatedAt         = "createdAt"
	PropConfirmedFromHold = "confirmedFromHold"
	PropConfirmedAt       = "confirmedAt"
)

// Hold is a tentative calendar event representing a provisional booking.
// The provider event is the record; there is no secondary store.
type Hold struct {
	ID         string
	CalendarID string
	HTMLLink   string
	Summary    string
	Start      string
	End        string
	TimeZone   string
	Status     string
	ExpiresAt  string
	Attendees  []Attendee
	Private    map[string]string
}

type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
}
