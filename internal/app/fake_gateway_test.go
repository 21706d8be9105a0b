package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/domain"
)

// fakeGateway is an in-memory Gateway with call counters, so tests can
// assert that dry runs and validation failures perform no provider writes.
type fakeGateway struct {
	events map[string]*calendar.Event
	busy   []calendar.BusyPeriod

	// pageSize forces smaller pages than requested to exercise pagination.
	pageSize int

	failPatch  error
	failDelete error

	freeBusyCalls int
	insertCalls   int
	patchCalls    int
	deleteCalls   int
	listCalls     int

	// scan is the result set snapshotted when a listing starts, so page
	// cursors stay consistent while the caller mutates events mid-scan.
	scan []*calendar.Event

	nextID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{events: make(map[string]*calendar.Event)}
}

func (f *fakeGateway) addEvent(ev *calendar.Event) *calendar.Event {
	if ev.ID == "" {
		f.nextID++
		ev.ID = fmt.Sprintf("evt-%d", f.nextID)
	}
	f.events[ev.ID] = ev
	return ev
}

func (f *fakeGateway) QueryFreeBusy(_ context.Context, _, _, _, _ string) (calendar.FreeBusy, error) {
	f.freeBusyCalls++
	return calendar.FreeBusy{Busy: f.busy, Available: len(f.busy) == 0}, nil
}

func (f *fakeGateway) InsertEvent(_ context.Context, _ string, ev *calendar.Event) (*calendar.Event, error) {
	f.insertCalls++
	f.nextID++
	stored := copyEvent(ev)
	stored.ID = fmt.Sprintf("evt-%d", f.nextID)
	stored.HTMLLink = "https://calendar.example.com/" + stored.ID
	f.events[stored.ID] = stored
	return copyEvent(stored), nil
}

func (f *fakeGateway) GetEvent(_ context.Context, _, id string) (*calendar.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return copyEvent(ev), nil
}

func (f *fakeGateway) PatchEvent(_ context.Context, _, id string, patch *calendar.EventPatch, _ string) (*calendar.Event, error) {
	f.patchCalls++
	if f.failPatch != nil {
		return nil, f.failPatch
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, &domain.UpstreamError{Status: 404, Message: "not found"}
	}
	if patch.Summary != nil {
		ev.Summary = *patch.Summary
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}
	if len(patch.SetPrivate) > 0 && ev.Private == nil {
		ev.Private = make(map[string]string)
	}
	for k, v := range patch.SetPrivate {
		ev.Private[k] = v
	}
	for _, k := range patch.RemovePrivate {
		delete(ev.Private, k)
	}
	if patch.UseDefaultReminders != nil {
		ev.UseDefaultReminders = *patch.UseDefaultReminders
	}
	return copyEvent(ev), nil
}

func (f *fakeGateway) DeleteEvent(_ context.Context, _, id string) (bool, error) {
	f.deleteCalls++
	if f.failDelete != nil {
		return false, f.failDelete
	}
	if _, ok := f.events[id]; !ok {
		return false, nil
	}
	delete(f.events, id)
	return true, nil
}

func (f *fakeGateway) ListEvents(_ context.Context, _ string, q calendar.ListQuery) (calendar.ListPage, error) {
	f.listCalls++

	// An empty page token starts a new scan: match and order the current
	// events once, then serve every page of this scan from that snapshot.
	// Deleting or patching events between pages must not shift the cursor.
	if q.PageToken == "" {
		var matched []*calendar.Event
		for _, ev := range f.events {
			if q.PrivateFilter == "hold=true" && ev.Private[domain.PropHold] != "true" {
				continue
			}
			if q.TimeMin != "" && ev.Start < q.TimeMin {
				continue
			}
			if q.TimeMax != "" && ev.Start > q.TimeMax {
				continue
			}
			matched = append(matched, ev)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].Start < matched[j].Start })
		f.scan = matched
	}
	matched := f.scan

	pageSize := int(q.PageSize)
	if f.pageSize > 0 && f.pageSize < pageSize {
		pageSize = f.pageSize
	}
	if pageSize <= 0 {
		pageSize = len(matched)
	}

	offset := 0
	if q.PageToken != "" {
		offset, _ = strconv.Atoi(q.PageToken)
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := calendar.ListPage{}
	for _, ev := range matched[offset:end] {
		page.Items = append(page.Items, copyEvent(ev))
	}
	if end < len(matched) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func copyEvent(ev *calendar.Event) *calendar.Event {
	dup := *ev
	if ev.Private != nil {
		dup.Private = make(map[string]string, len(ev.Private))
		for k, v := range ev.Private {
			dup.Private[k] = v
		}
	}
	dup.Attendees = append([]calendar.Attendee(nil), ev.Attendees...)
	return &dup
}
