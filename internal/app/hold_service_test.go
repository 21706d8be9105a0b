package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/clock"
	"github.com/invizible/bookassist/internal/domain"
)

func TestHoldService_CreateHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 30, 17, 0, 0, 0, time.UTC)

	t.Run("creates tentative hold with expiry metadata", func(t *testing.T) {
		t.Parallel()
		gw := newFakeGateway()
		svc := NewHoldService(gw, clock.NewFixed(now),
			WithHoldTTL(30*time.Minute),
			WithDefaultCalendar("bookings@example.com"),
		)

		hold, err := svc.CreateHold(context.Background(), CreateHoldInput{
			Start: "2025-09-30T18:00:00Z",
			End:   "2025-09-30T19:00:00Z",
			Name:  "Dana",
			Email: "dana@example.com",
			Topic: "wedding set",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hold.ID == "" {
			t.Fatalf("expected provider-assigned id")
		}
		if hold.CalendarID != "bookings@example.com" {
			t.Fatalf("calendar id = %q", hold.CalendarID)
		}
		wantExpiry := now.Add(30 * time.Minute).Format(time.RFC3339)
		if hold.ExpiresAt != wantExpiry {
			t.Fatalf("expiresAt = %q, want %q", hold.ExpiresAt, wantExpiry)
		}

		stored := gw.events[hold.ID]
		if stored.Status != domain.StatusTentative {
			t.Fatalf("status = %q", stored.Status)
		}
		if stored.Summary != "HOLD: Dana" {
			t.Fatalf("summary = %q", stored.Summary)
		}
		if stored.Private[domain.PropHold] != "true" {
			t.Fatalf("hold marker missing: %v", stored.Private)
		}
		if stored.Private[domain.PropAutoCancelAt] != wantExpiry {
			t.Fatalf("autoCancelAt = %q", stored.Private[domain.PropAutoCancelAt])
		}
		if stored.Private[domain.PropHoldID] == "" {
			t.Fatalf("hold tag missing")
		}
		if stored.Transparency != "opaque" {
			t.Fatalf("transparency = %q", stored.Transparency)
		}
		if len(stored.Attendees) != 1 || stored.Attendees[0].ResponseStatus != "needsAction" {
			t.Fatalf("attendees = %+v", stored.Attendees)
		}
		if stored.UseDefaultReminders {
			t.Fatalf("expected reminders disabled on hold")
		}
	})

	t.Run("ttl from request overrides default", func(t *testing.T) {
		t.Parallel()
		gw := newFakeGateway()
		svc := NewHoldService(gw, clock.NewFixed(now))

		hold, err := svc.CreateHold(context.Background(), CreateHoldInput{
			Start:      "2025-09-30T18:00:00Z",
			End:        "2025-09-30T19:00:00Z",
			TTLMinutes: 5,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := now.Add(5 * time.Minute).Format(time.RFC3339); hold.ExpiresAt != want {
			t.Fatalf("expiresAt = %q, want %q", hold.ExpiresAt, want)
		}
	})

	t.Run("busy slot is rejected before insert", func(t *testing.T) {
		t.Parallel()
		gw := newFakeGateway()
		gw.busy = []calendar.BusyPeriod{{Start: "2025-09-30T18:00:00Z", End: "2025-09-30T18:30:00Z"}}
		svc := NewHoldService(gw, clock.NewFixed(now))

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			Start: "2025-09-30T18:00:00Z",
			End:   "2025-09-30T19:00:00Z",
		})
		if !errors.Is(err, domain.ErrSlotBusy) {
			t.Fatalf("expected ErrSlotBusy, got %v", err)
		}
		if gw.insertCalls != 0 {
			t.Fatalf("insert called %d times on busy slot", gw.insertCalls)
		}
	})

	t.Run("invalid range fails before any network call", func(t *testing.T) {
		t.Parallel()
		cases := []CreateHoldInput{
			{Start: "not a date", End: "2025-09-30T19:00:00Z"},
			{Start: "2025-09-30T18:00:00Z", End: "garbage"},
			{Start: "2025-09-30T19:00:00Z", End: "2025-09-30T18:00:00Z"},
			{Start: "2025-09-30T18:00:00Z", End: "2025-09-30T18:00:00Z"},
		}
		for _, in := range cases {
			gw := newFakeGateway()
			svc := NewHoldService(gw, clock.NewFixed(now))
			if _, err := svc.CreateHold(context.Background(), in); !errors.Is(err, domain.ErrInvalidRange) {
				t.Fatalf("input %+v: expected ErrInvalidRange, got %v", in, err)
			}
			if gw.freeBusyCalls != 0 || gw.insertCalls != 0 {
				t.Fatalf("input %+v: network calls made on invalid input", in)
			}
		}
	})
}

func TestHoldService_GetHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 30, 17, 0, 0, 0, time.UTC)
	gw := newFakeGateway()
	gw.addEvent(&calendar.Event{
		ID:      "evt-hold",
		Summary: "HOLD: Dana",
		Start:   "2025-09-30T18:00:00Z",
		End:     "2025-09-30T19:00:00Z",
		Status:  domain.StatusTentative,
		Private: map[string]string{
			domain.PropHold:         "true",
			domain.PropAutoCancelAt: "2025-09-30T17:20:00Z",
		},
	})
	svc := NewHoldService(gw, clock.NewFixed(now))

	hold, err := svc.GetHold(context.Background(), "", "evt-hold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hold.ExpiresAt != "2025-09-30T17:20:00Z" {
		t.Fatalf("expiresAt = %q", hold.ExpiresAt)
	}

	if _, err := svc.GetHold(context.Background(), "", "missing"); !errors.Is(err, domain.ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
}

func TestHoldService_ReleaseHold_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 30, 17, 0, 0, 0, time.UTC)
	gw := newFakeGateway()
	gw.addEvent(&calendar.Event{ID: "evt-hold", Start: "2025-09-30T18:00:00Z"})
	svc := NewHoldService(gw, clock.NewFixed(now))

	released, err := svc.ReleaseHold(context.Background(), "", "evt-hold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !released {
		t.Fatalf("expected first release to report true")
	}

	released, err = svc.ReleaseHold(context.Background(), "", "evt-hold")
	if err != nil {
		t.Fatalf("second release errored: %v", err)
	}
	if released {
		t.Fatalf("expected second release to report false")
	}
}
