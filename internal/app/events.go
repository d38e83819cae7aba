package app

import (
	"fmt"
	"strings"

	"tomorrowplanner/pkg/domain"
)

// CreateEvent validates the collected fields and persists a new event,
// returning its assigned id. Owner is fixed at creation and never changes.
func (a *App) CreateEvent(ownerID int64, fields domain.EventFields) (int64, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Type = strings.TrimSpace(fields.Type)
	fields.Time = strings.TrimSpace(fields.Time)
	fields.Location = strings.TrimSpace(fields.Location)

	for field, value := range map[string]string{
		"title":    fields.Title,
		"type":     fields.Type,
		"time":     fields.Time,
		"location": fields.Location,
	} {
		if value == "" {
			return 0, &ValidationError{Field: field, Reason: "must not be empty"}
		}
	}

	id, err := a.store.CreateEvent(ownerID, fields)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}
	return id, nil
}

// ListForOwner returns the owner's events, most recent first, each with its
// current RSVP tally.
func (a *App) ListForOwner(ownerID int64) ([]domain.EventSummary, error) {
	events, err := a.store.ListEventsByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	summaries := make([]domain.EventSummary, 0, len(events))
	for _, event := range events {
		counts, err := a.store.CountRSVPs(event.ID)
		if err != nil {
			return nil, fmt.Errorf("count rsvps for event %d: %w", event.ID, err)
		}
		summaries = append(summaries, domain.EventSummary{Event: event, Counts: counts})
	}
	return summaries, nil
}

// EventSummary loads one event with its tally and the viewer's own answer.
// Fails with ErrNoAccess unless the viewer owns the event or holds an RSVP.
func (a *App) EventSummary(eventID, viewerID int64) (domain.EventSummary, error) {
	event, ok, err := a.store.GetEvent(eventID)
	if err != nil {
		return domain.EventSummary{}, fmt.Errorf("load event: %w", err)
	}
	if !ok {
		return domain.EventSummary{}, ErrEventNotFound
	}
	access, err := a.hasAccess(event, viewerID)
	if err != nil {
		return domain.EventSummary{}, err
	}
	if !access {
		return domain.EventSummary{}, ErrNoAccess
	}
	return a.summarize(event, viewerID)
}

// DeleteEvent removes an event. Only the owner may delete; RSVPs go with it.
func (a *App) DeleteEvent(eventID, ownerID int64) error {
	deleted, err := a.store.DeleteEvent(eventID, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !deleted {
		return ErrEventNotFound
	}
	return nil
}

func (a *App) summarize(event domain.Event, viewerID int64) (domain.EventSummary, error) {
	counts, err := a.store.CountRSVPs(event.ID)
	if err != nil {
		return domain.EventSummary{}, fmt.Errorf("count rsvps: %w", err)
	}
	summary := domain.EventSummary{Event: event, Counts: counts}
	rsvp, ok, err := a.store.GetRSVP(event.ID, viewerID)
	if err != nil {
		return domain.EventSummary{}, fmt.Errorf("load rsvp: %w", err)
	}
	if ok {
		status := rsvp.Status
		summary.UserStatus = &status
	}
	return summary, nil
}

// hasAccess reports whether the user owns the event or already holds an RSVP.
func (a *App) hasAccess(event domain.Event, userID int64) (bool, error) {
	if event.OwnerID == userID {
		return true, nil
	}
	_, ok, err := a.store.GetRSVP(event.ID, userID)
	if err != nil {
		return false, fmt.Errorf("load rsvp: %w", err)
	}
	return ok, nil
}
