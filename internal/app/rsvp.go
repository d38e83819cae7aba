package app

import (
	"errors"
	"fmt"
	"strconv"

	"tomorrowplanner/pkg/domain"
	"tomorrowplanner/pkg/store"
)

// InviteLink renders the shareable deep link for an event.
func (a *App) InviteLink(eventID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=join_%s", a.botUsername, a.codec.Encode(eventID))
}

// OpenInvite handles an invitee clicking the deep link. The token is the
// proof of invitation, so no prior access is required. The first open
// records a provisional "maybe" answer.
func (a *App) OpenInvite(token string, userID int64) (domain.EventSummary, error) {
	eventID, err := a.codec.Decode(token)
	if err != nil {
		return domain.EventSummary{}, ErrInvalidInvite
	}
	event, ok, err := a.store.GetEvent(eventID)
	if err != nil {
		return domain.EventSummary{}, fmt.Errorf("load event: %w", err)
	}
	if !ok {
		return domain.EventSummary{}, ErrEventNotFound
	}
	if _, ok, err := a.store.GetRSVP(eventID, userID); err != nil {
		return domain.EventSummary{}, fmt.Errorf("load rsvp: %w", err)
	} else if !ok {
		if err := a.store.UpsertRSVP(eventID, userID, domain.StatusMaybe); err != nil {
			return domain.EventSummary{}, fmt.Errorf("record provisional rsvp: %w", err)
		}
	}
	return a.summarize(event, userID)
}

// ApplyRSVPRef records the user's answer for a reference that is either an
// invite token or a raw event id. Token holders are implicitly invited, so
// the token is tried first; a reference that is neither fails as an invalid
// invite. Returns the event id alongside the answer outcome.
func (a *App) ApplyRSVPRef(ref string, userID int64, status domain.Status) (int64, domain.Status, *domain.Status, error) {
	if eventID, err := a.codec.Decode(ref); err == nil {
		applied, previous, err := a.applyRSVP(eventID, userID, status, false)
		return eventID, applied, previous, err
	}
	eventID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, "", nil, ErrInvalidInvite
	}
	applied, previous, err := a.ApplyRSVP(eventID, userID, status)
	return eventID, applied, previous, err
}

// ApplyRSVP records the user's answer for a raw event id. Without a token
// the user must already have access (owner or prior RSVP).
func (a *App) ApplyRSVP(eventID, userID int64, status domain.Status) (domain.Status, *domain.Status, error) {
	return a.applyRSVP(eventID, userID, status, true)
}

// applyRSVP upserts the answer and reports the previous one, if any.
// Repeating an identical answer is a no-op apart from the timestamp.
func (a *App) applyRSVP(eventID, userID int64, status domain.Status, checkAccess bool) (domain.Status, *domain.Status, error) {
	event, ok, err := a.store.GetEvent(eventID)
	if err != nil {
		return "", nil, fmt.Errorf("load event: %w", err)
	}
	if !ok {
		return "", nil, ErrEventNotFound
	}
	if checkAccess {
		access, err := a.hasAccess(event, userID)
		if err != nil {
			return "", nil, err
		}
		if !access {
			return "", nil, ErrNoAccess
		}
	}

	var previous *domain.Status
	if prior, ok, err := a.store.GetRSVP(eventID, userID); err != nil {
		return "", nil, fmt.Errorf("load prior rsvp: %w", err)
	} else if ok {
		prev := prior.Status
		previous = &prev
	}

	if err := a.store.UpsertRSVP(eventID, userID, status); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return "", nil, ErrEventNotFound
		}
		return "", nil, fmt.Errorf("upsert rsvp: %w", err)
	}
	return status, previous, nil
}
