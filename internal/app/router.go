package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"tomorrowplanner/internal/util"
	"tomorrowplanner/pkg/domain"
)

const (
	greetingText = "Hi! I'm Tomorrow Planner. Use /new to create an event for tomorrow or /help for all commands."
	helpText     = "Commands:\n/new – create an event for tomorrow\n/my – manage events you created\n/cancel – stop event creation\n/help – show this help message"
	retryText    = "Something went wrong. Please try again later."
	badInvite    = "This invite link is invalid or expired."
)

// HandleUpdate routes one inbound update and returns the outbound replies.
// Processing is serialized per user id so conversation steps from the same
// user are always committed in arrival order. Failures never escape: they
// are logged and rendered as safe user-facing messages.
func (a *App) HandleUpdate(ctx context.Context, u domain.Update) []domain.Reply {
	unlock := a.locks.acquire(u.UserID)
	defer unlock()

	log := util.LoggerFromContext(ctx).With("user_id", u.UserID)

	if data := strings.TrimSpace(u.CallbackData); data != "" {
		return a.handleCallback(log.With("callback", true), u, data)
	}
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		// Commands always win over an open creation flow; the flow itself
		// is kept unless the command is /cancel or /new.
		return a.handleCommand(log, u, text)
	}
	return a.handleFlowText(log, u, text)
}

func (a *App) handleCommand(log *slog.Logger, u domain.Update, text string) []domain.Reply {
	parts := strings.Fields(text)
	switch parts[0] {
	case "/start":
		if len(parts) > 1 && strings.HasPrefix(parts[1], "join_") {
			return a.handleJoin(log, u, strings.TrimPrefix(parts[1], "join_"))
		}
		return reply(u.ChatID, greetingText)
	case "/help":
		return reply(u.ChatID, helpText)
	case "/new":
		if !u.Private {
			return reply(u.ChatID, "Please start a private chat with me to create events.")
		}
		if err := a.StartCreation(u.UserID, u.ChatID); err != nil {
			log.Error("start creation", "err", err)
			return reply(u.ChatID, retryText)
		}
		return reply(u.ChatID, promptFor(domain.StepTitle))
	case "/cancel":
		cancelled, err := a.CancelCreation(u.UserID)
		if err != nil {
			log.Error("cancel creation", "err", err)
			return reply(u.ChatID, retryText)
		}
		if !cancelled {
			return reply(u.ChatID, "Nothing to cancel.")
		}
		return reply(u.ChatID, "Event creation cancelled.")
	case "/my":
		if !u.Private {
			return reply(u.ChatID, "Please open a private chat to view your events.")
		}
		return a.handleMy(log, u)
	}
	return reply(u.ChatID, "Unknown command. Use /help to see what I can do.")
}

func (a *App) handleMy(log *slog.Logger, u domain.Update) []domain.Reply {
	summaries, err := a.ListForOwner(u.UserID)
	if err != nil {
		log.Error("list events", "err", err)
		return reply(u.ChatID, retryText)
	}
	if len(summaries) == 0 {
		return reply(u.ChatID, "You haven't created any events yet. Use /new to start.")
	}
	replies := make([]domain.Reply, 0, len(summaries))
	for _, summary := range summaries {
		event := summary.Event
		text := strings.Join([]string{
			"<b>" + escapeHTML(event.Title) + "</b> — " + escapeHTML(event.Time) + " (" + escapeHTML(event.Type) + ")",
			"RSVPs — Yes: " + strconv.Itoa(summary.Counts.Yes) +
				" | No: " + strconv.Itoa(summary.Counts.No) +
				" | Maybe: " + strconv.Itoa(summary.Counts.Maybe),
		}, "\n")
		replies = append(replies, domain.Reply{
			ChatID:  u.ChatID,
			Text:    text,
			Buttons: ownerEventButtons(event.ID),
		})
	}
	return replies
}

func (a *App) handleJoin(log *slog.Logger, u domain.Update, token string) []domain.Reply {
	if !u.Private {
		return reply(u.ChatID, "Please message me privately to join this event.")
	}
	summary, err := a.OpenInvite(token, u.UserID)
	if err != nil {
		return a.errorReply(log, u.ChatID, err, "open invite")
	}
	text := "You're invited to an event for tomorrow!\n\n" + a.summaryText(summary, false)
	return []domain.Reply{{
		ChatID:  u.ChatID,
		Text:    text,
		Buttons: a.rsvpButtons(summary.Event.ID),
	}}
}

func (a *App) handleFlowText(log *slog.Logger, u domain.Update, text string) []domain.Reply {
	result, open, err := a.advanceCreation(u.UserID, text)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return reply(u.ChatID, "That doesn't look right: "+verr.Reason+". Try again.")
		}
		log.Error("advance creation", "err", err)
		return reply(u.ChatID, retryText)
	}
	if !open {
		return reply(u.ChatID, greetingText)
	}
	if !result.done {
		return reply(u.ChatID, result.prompt)
	}

	summary, err := a.EventSummary(result.createdEventID, u.UserID)
	if err != nil {
		log.Error("load created event", "err", err)
		return reply(u.ChatID, retryText)
	}
	counts := summary.Counts
	text = "Event saved! Share it with friends.\n\n" + a.eventText(summary.Event, eventTextOptions{
		counts:        &counts,
		showStatus:    true,
		includeInvite: true,
	})
	return []domain.Reply{{
		ChatID:  u.ChatID,
		Text:    text,
		Buttons: a.rsvpButtons(summary.Event.ID),
	}}
}

func (a *App) handleCallback(log *slog.Logger, u domain.Update, data string) []domain.Reply {
	switch {
	case strings.HasPrefix(data, "rsvp:"):
		parts := strings.Split(data, ":")
		if len(parts) != 3 {
			return alert(u.ChatID, "Invalid RSVP data.")
		}
		status, ok := domain.ParseStatus(parts[2])
		if !ok {
			return alert(u.ChatID, "Unknown option.")
		}
		return a.handleRSVP(log, u, parts[1], status)
	case strings.HasPrefix(data, "view:"):
		eventID, err := strconv.ParseInt(strings.TrimPrefix(data, "view:"), 10, 64)
		if err != nil {
			return alert(u.ChatID, "Invalid event reference.")
		}
		return a.handleView(log, u, eventID)
	case strings.HasPrefix(data, "delete:"):
		eventID, err := strconv.ParseInt(strings.TrimPrefix(data, "delete:"), 10, 64)
		if err != nil {
			return alert(u.ChatID, "Invalid event reference.")
		}
		return a.handleDelete(log, u, eventID)
	}
	return nil
}

func (a *App) handleRSVP(log *slog.Logger, u domain.Update, ref string, status domain.Status) []domain.Reply {
	eventID, applied, previous, err := a.ApplyRSVPRef(ref, u.UserID, status)
	if err != nil {
		return a.errorReply(log, u.ChatID, err, "apply rsvp")
	}
	note := "RSVP set to " + applied.Label() + "."
	if previous != nil && *previous != applied {
		note = "RSVP changed from " + previous.Label() + " to " + applied.Label() + "."
	}

	summary, err := a.EventSummary(eventID, u.UserID)
	if err != nil {
		return a.errorReply(log, u.ChatID, err, "load event after rsvp")
	}
	text := note + "\n\n" + a.summaryText(summary, summary.Event.OwnerID == u.UserID)
	return []domain.Reply{{
		ChatID:  u.ChatID,
		Text:    text,
		Buttons: a.rsvpButtons(summary.Event.ID),
	}}
}

func (a *App) handleView(log *slog.Logger, u domain.Update, eventID int64) []domain.Reply {
	summary, err := a.EventSummary(eventID, u.UserID)
	if err != nil {
		return a.errorReply(log, u.ChatID, err, "view event")
	}
	return []domain.Reply{{
		ChatID:  u.ChatID,
		Text:    a.summaryText(summary, summary.Event.OwnerID == u.UserID),
		Buttons: a.rsvpButtons(summary.Event.ID),
	}}
}

func (a *App) handleDelete(log *slog.Logger, u domain.Update, eventID int64) []domain.Reply {
	if err := a.DeleteEvent(eventID, u.UserID); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return alert(u.ChatID, "You can only delete your own events.")
		}
		return a.errorReply(log, u.ChatID, err, "delete event")
	}
	return reply(u.ChatID, "Event deleted.")
}

// errorReply maps core errors to user-safe messages. Internal details and
// identifiers are logged, never rendered.
func (a *App) errorReply(log *slog.Logger, chatID int64, err error, op string) []domain.Reply {
	switch {
	case errors.Is(err, ErrInvalidInvite), errors.Is(err, ErrEventNotFound):
		return reply(chatID, badInvite)
	case errors.Is(err, ErrNoAccess):
		return reply(chatID, "Join via the invite link first.")
	}
	log.Error(op, "err", err)
	return reply(chatID, retryText)
}

func reply(chatID int64, text string) []domain.Reply {
	return []domain.Reply{{ChatID: chatID, Text: text}}
}

func alert(chatID int64, text string) []domain.Reply {
	return []domain.Reply{{ChatID: chatID, Text: text, Alert: true}}
}
