package store

import (
	"errors"
	"sync"
	"testing"

	"tomorrowplanner/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func dinnerFields() domain.EventFields {
	return domain.EventFields{
		Title:    "Dinner",
		Type:     "Social",
		Time:     "Tomorrow 19:00",
		Location: "Cafe",
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned event id")
	}

	event, ok, err := s.GetEvent(id)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !ok {
		t.Fatalf("expected event to exist")
	}
	if event.OwnerID != 10 || event.Title != "Dinner" || event.Type != "Social" ||
		event.Time != "Tomorrow 19:00" || event.Location != "Cafe" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.CreatedAt.IsZero() {
		t.Fatalf("expected creation timestamp")
	}

	if _, ok, err := s.GetEvent(id + 100); err != nil || ok {
		t.Fatalf("expected missing event, ok=%v err=%v", ok, err)
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	s := newTestStore(t)

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		id, err := s.CreateEvent(10, dinnerFields())
		if err != nil {
			t.Fatalf("create event: %v", err)
		}
		if seen[id] {
			t.Fatalf("event id %d assigned twice", id)
		}
		seen[id] = true
	}
}

func TestListEventsByOwnerMostRecentFirst(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create first event: %v", err)
	}
	fields := dinnerFields()
	fields.Title = "Movie"
	second, err := s.CreateEvent(10, fields)
	if err != nil {
		t.Fatalf("create second event: %v", err)
	}
	if _, err := s.CreateEvent(99, dinnerFields()); err != nil {
		t.Fatalf("create other owner event: %v", err)
	}

	events, err := s.ListEventsByOwner(10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != second || events[1].ID != first {
		t.Fatalf("expected most-recent-first order, got %d then %d", events[0].ID, events[1].ID)
	}
}

func TestUpsertRSVPIdempotent(t *testing.T) {
	s := newTestStore(t)

	eventID, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := s.UpsertRSVP(eventID, 20, domain.StatusYes); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertRSVP(eventID, 20, domain.StatusYes); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rsvps, err := s.ListRSVPs(eventID)
	if err != nil {
		t.Fatalf("list rsvps: %v", err)
	}
	if len(rsvps) != 1 {
		t.Fatalf("expected exactly one rsvp row, got %d", len(rsvps))
	}
	if rsvps[0].Status != domain.StatusYes {
		t.Fatalf("unexpected status: %s", rsvps[0].Status)
	}
}

func TestUpsertRSVPOverwritesStatus(t *testing.T) {
	s := newTestStore(t)

	eventID, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := s.UpsertRSVP(eventID, 20, domain.StatusMaybe); err != nil {
		t.Fatalf("upsert maybe: %v", err)
	}
	before, ok, err := s.GetRSVP(eventID, 20)
	if err != nil || !ok {
		t.Fatalf("get rsvp: ok=%v err=%v", ok, err)
	}
	if err := s.UpsertRSVP(eventID, 20, domain.StatusYes); err != nil {
		t.Fatalf("upsert yes: %v", err)
	}

	rsvps, err := s.ListRSVPs(eventID)
	if err != nil {
		t.Fatalf("list rsvps: %v", err)
	}
	if len(rsvps) != 1 {
		t.Fatalf("expected one row after overwrite, got %d", len(rsvps))
	}
	if rsvps[0].Status != domain.StatusYes {
		t.Fatalf("expected yes after overwrite, got %s", rsvps[0].Status)
	}
	if rsvps[0].UpdatedAt.Before(before.UpdatedAt) {
		t.Fatalf("expected updated timestamp to move forward")
	}
}

func TestUpsertRSVPMissingEvent(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertRSVP(12345, 20, domain.StatusYes); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got: %v", err)
	}
}

func TestConcurrentUpsertsYieldOneRow(t *testing.T) {
	s := newTestStore(t)

	eventID, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	const workers = 8
	statuses := []domain.Status{domain.StatusYes, domain.StatusNo, domain.StatusMaybe}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_ = s.UpsertRSVP(eventID, 20, statuses[i%len(statuses)])
		}(i)
	}
	wg.Wait()

	rsvps, err := s.ListRSVPs(eventID)
	if err != nil {
		t.Fatalf("list rsvps: %v", err)
	}
	if len(rsvps) != 1 {
		t.Fatalf("expected one rsvp row after concurrent upserts, got %d", len(rsvps))
	}
}

func TestCountRSVPs(t *testing.T) {
	s := newTestStore(t)

	eventID, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	for user, status := range map[int64]domain.Status{
		21: domain.StatusYes,
		22: domain.StatusYes,
		23: domain.StatusNo,
		24: domain.StatusMaybe,
	} {
		if err := s.UpsertRSVP(eventID, user, status); err != nil {
			t.Fatalf("upsert for user %d: %v", user, err)
		}
	}

	counts, err := s.CountRSVPs(eventID)
	if err != nil {
		t.Fatalf("count rsvps: %v", err)
	}
	if counts.Yes != 2 || counts.No != 1 || counts.Maybe != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestDeleteEvent(t *testing.T) {
	s := newTestStore(t)

	eventID, err := s.CreateEvent(10, dinnerFields())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := s.UpsertRSVP(eventID, 20, domain.StatusYes); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if deleted, err := s.DeleteEvent(eventID, 99); err != nil || deleted {
		t.Fatalf("expected delete by non-owner to be refused, deleted=%v err=%v", deleted, err)
	}
	deleted, err := s.DeleteEvent(eventID, 10)
	if err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if !deleted {
		t.Fatalf("expected event to be deleted")
	}
	if _, ok, _ := s.GetEvent(eventID); ok {
		t.Fatalf("expected event to be gone")
	}
	rsvps, err := s.ListRSVPs(eventID)
	if err != nil {
		t.Fatalf("list rsvps: %v", err)
	}
	if len(rsvps) != 0 {
		t.Fatalf("expected rsvps to cascade, got %d rows", len(rsvps))
	}
}
