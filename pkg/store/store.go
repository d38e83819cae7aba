package store

import (
	"errors"

	"tomorrowplanner/pkg/domain"
)

var (
	// ErrEventNotFound indicates a write referenced a missing event.
	ErrEventNotFound = errors.New("event not found")
)

// Store defines persistence operations for events and RSVPs. All writes are
// atomic per call; the (event, user) uniqueness of RSVPs is enforced by the
// store itself, not by callers.
type Store interface {
	// events
	CreateEvent(ownerID int64, fields domain.EventFields) (int64, error)
	GetEvent(id int64) (domain.Event, bool, error)
	ListEventsByOwner(ownerID int64) ([]domain.Event, error)
	DeleteEvent(id, ownerID int64) (bool, error)

	// rsvps
	UpsertRSVP(eventID, userID int64, status domain.Status) error
	GetRSVP(eventID, userID int64) (domain.RSVP, bool, error)
	ListRSVPs(eventID int64) ([]domain.RSVP, error)
	CountRSVPs(eventID int64) (domain.Counts, error)
}

// SessionStore holds in-progress conversation sessions keyed by user id.
type SessionStore interface {
	Get(userID int64) (domain.Session, bool, error)
	Put(session domain.Session) error
	Delete(userID int64) error
}
