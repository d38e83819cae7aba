package app

import (
	"fmt"
	"strings"

	"tomorrowplanner/pkg/domain"
)

func escapeHTML(text string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
}

// rsvpButtons builds one row of Yes/No/Maybe buttons carrying the invite
// token, so pressing them never exposes a raw event id.
func (a *App) rsvpButtons(eventID int64) [][]domain.Button {
	token := a.codec.Encode(eventID)
	return [][]domain.Button{{
		{Text: "✅ Yes", CallbackData: fmt.Sprintf("rsvp:%s:%s", token, domain.StatusYes)},
		{Text: "❌ No", CallbackData: fmt.Sprintf("rsvp:%s:%s", token, domain.StatusNo)},
		{Text: "❔ Maybe", CallbackData: fmt.Sprintf("rsvp:%s:%s", token, domain.StatusMaybe)},
	}}
}

func ownerEventButtons(eventID int64) [][]domain.Button {
	return [][]domain.Button{
		{{Text: "View", CallbackData: fmt.Sprintf("view:%d", eventID)}},
		{{Text: "Delete", CallbackData: fmt.Sprintf("delete:%d", eventID)}},
	}
}

type eventTextOptions struct {
	counts        *domain.Counts
	userStatus    *domain.Status
	showStatus    bool
	includeInvite bool
}

func (a *App) eventText(event domain.Event, opts eventTextOptions) string {
	lines := []string{
		fmt.Sprintf("📌 <b>%s</b>", escapeHTML(event.Title)),
		fmt.Sprintf("Type: %s", escapeHTML(event.Type)),
		fmt.Sprintf("Time: %s", escapeHTML(event.Time)),
		fmt.Sprintf("Location: %s", escapeHTML(event.Location)),
	}
	if opts.counts != nil {
		lines = append(lines, fmt.Sprintf(
			"RSVPs — Yes: %d | No: %d | Maybe: %d",
			opts.counts.Yes, opts.counts.No, opts.counts.Maybe,
		))
	}
	if opts.showStatus {
		status := domain.Status("")
		if opts.userStatus != nil {
			status = *opts.userStatus
		}
		lines = append(lines, fmt.Sprintf("Your RSVP: %s", status.Label()))
	}
	if opts.includeInvite {
		lines = append(lines, fmt.Sprintf("Invite friends ➜ %s", escapeHTML(a.InviteLink(event.ID))))
	}
	return strings.Join(lines, "\n")
}

func (a *App) summaryText(summary domain.EventSummary, includeInvite bool) string {
	counts := summary.Counts
	return a.eventText(summary.Event, eventTextOptions{
		counts:        &counts,
		userStatus:    summary.UserStatus,
		showStatus:    true,
		includeInvite: includeInvite,
	})
}
