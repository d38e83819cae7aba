package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"tomorrowplanner/pkg/domain"
)

// DefaultTimeText is used when the user leaves the time step empty.
const DefaultTimeText = "Tomorrow 19:00"

var clockRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// StartCreation opens a fresh creation session for the user. An already
// open session is discarded and restarted.
func (a *App) StartCreation(userID, chatID int64) error {
	session := domain.Session{
		UserID:    userID,
		ChatID:    chatID,
		Step:      domain.StepTitle,
		UpdatedAt: time.Now().UTC(),
	}
	if err := a.sessions.Put(session); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

// CancelCreation discards the user's session. It reports whether a session
// was actually open.
func (a *App) CancelCreation(userID int64) (bool, error) {
	_, open, err := a.sessions.Get(userID)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if !open {
		return false, nil
	}
	if err := a.sessions.Delete(userID); err != nil {
		return false, fmt.Errorf("discard session: %w", err)
	}
	return true, nil
}

// stepResult is the outcome of feeding one text input to an open session.
type stepResult struct {
	// prompt for the next step, or a re-prompt on validation failure
	prompt string
	// set when the final step completed and an event was created
	createdEventID int64
	done           bool
}

// advanceCreation feeds one message into the user's open flow. The second
// return value reports whether a session was open at all; when false the
// text was not meant for the conversation.
func (a *App) advanceCreation(userID int64, text string) (stepResult, bool, error) {
	session, open, err := a.sessions.Get(userID)
	if err != nil {
		return stepResult{}, false, fmt.Errorf("load session: %w", err)
	}
	if !open {
		return stepResult{}, false, nil
	}

	input := strings.TrimSpace(text)
	switch session.Step {
	case domain.StepTitle:
		if input == "" {
			return stepResult{prompt: "Please send a short title or description for the event."}, true, nil
		}
		session.Fields.Title = input
		session.Step = domain.StepType
		return a.saveStep(session, promptFor(session.Step))
	case domain.StepType:
		if input == "" {
			return stepResult{prompt: "Please tell me the event type (e.g., dinner, movie, walk)."}, true, nil
		}
		session.Fields.Type = input
		session.Step = domain.StepTime
		return a.saveStep(session, promptFor(session.Step))
	case domain.StepTime:
		session.Fields.Time = normalizeTime(input)
		session.Step = domain.StepLocation
		return a.saveStep(session, promptFor(session.Step))
	case domain.StepLocation:
		if input == "" {
			return stepResult{prompt: "Please type the place for the event."}, true, nil
		}
		session.Fields.Location = input
		eventID, err := a.CreateEvent(userID, session.Fields)
		if err != nil {
			return stepResult{}, true, err
		}
		if err := a.sessions.Delete(userID); err != nil {
			return stepResult{}, true, fmt.Errorf("close session: %w", err)
		}
		return stepResult{createdEventID: eventID, done: true}, true, nil
	}
	// unknown step: discard the broken session
	_ = a.sessions.Delete(userID)
	return stepResult{}, false, nil
}

func (a *App) saveStep(session domain.Session, prompt string) (stepResult, bool, error) {
	session.UpdatedAt = time.Now().UTC()
	if err := a.sessions.Put(session); err != nil {
		return stepResult{}, true, fmt.Errorf("save session: %w", err)
	}
	return stepResult{prompt: prompt}, true, nil
}

func promptFor(step domain.Step) string {
	switch step {
	case domain.StepTitle:
		return "Let's plan tomorrow! What's the event name or short description?\n\nSend /cancel to stop anytime."
	case domain.StepType:
		return "What type of event is it? (e.g., dinner, movie, walk)"
	case domain.StepTime:
		return fmt.Sprintf("What time tomorrow? Use 24-hour format like 19:00. Leave empty for %s.", DefaultTimeText)
	case domain.StepLocation:
		return "Where will it happen? Type the place."
	}
	return ""
}

// normalizeTime fills in the default for empty input and prefixes bare
// HH:MM answers with "Tomorrow".
func normalizeTime(input string) string {
	if input == "" {
		return DefaultTimeText
	}
	if clockRe.MatchString(input) {
		return "Tomorrow " + input
	}
	return input
}
