package domain

import (
	"strings"
	"time"
)

// Status is a user's RSVP answer for an event.
type Status string

const (
	StatusYes   Status = "yes"
	StatusNo    Status = "no"
	StatusMaybe Status = "maybe"
)

// ParseStatus maps free-form input to a Status.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusYes:
		return StatusYes, true
	case StatusNo:
		return StatusNo, true
	case StatusMaybe:
		return StatusMaybe, true
	}
	return "", false
}

// Label returns the user-facing form of a status.
func (s Status) Label() string {
	if s == "" {
		return "Not set"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Event is a plan for tomorrow created by a single owner.
type Event struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventFields carries the values collected by the creation conversation.
type EventFields struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// RSVP is one user's current answer for one event. At most one row exists
// per (event, user) pair.
type RSVP struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"eventId"`
	UserID    int64     `json:"userId"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Counts tallies RSVP answers for an event.
type Counts struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
}

// EventSummary is an event annotated with its tally and the viewer's answer.
type EventSummary struct {
	Event      Event   `json:"event"`
	Counts     Counts  `json:"counts"`
	UserStatus *Status `json:"userStatus,omitempty"`
}

// Step identifies the conversation state while creating an event.
type Step int

const (
	StepIdle Step = iota
	StepTitle
	StepType
	StepTime
	StepLocation
)

// Session is the per-user scratch state of an in-progress creation flow.
type Session struct {
	UserID    int64       `json:"userId"`
	ChatID    int64       `json:"chatId"`
	Step      Step        `json:"step"`
	Fields    EventFields `json:"fields"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Update is a transport-neutral inbound chat event. Exactly one of Text or
// CallbackData is expected to be meaningful.
type Update struct {
	UpdateID     int64  `json:"update_id,omitempty"`
	UserID       int64  `json:"user_id"`
	ChatID       int64  `json:"chat_id"`
	Private      bool   `json:"private"`
	Text         string `json:"text,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Button is an inline keyboard button attached to a reply.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Reply is one outbound message produced while handling an update.
type Reply struct {
	ChatID  int64      `json:"chat_id"`
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
	Alert   bool       `json:"alert,omitempty"`
}
