package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/audit"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/registrations"
)

// Messages lets an organizer mail every registrant of an event, filtered
// by payment status. The HTML body is sanitized before it goes anywhere
// near a mailbox.
type Messages struct {
	Events    *events.Service
	Regs      *registrations.Service
	Oracle    auth.Oracle
	Notifier  events.Notifier
	Webmaster string
	Env       string

	policy *bluemonday.Policy
}

func NewMessages(eventService *events.Service, regService *registrations.Service, oracle auth.Oracle, notifier events.Notifier, webmaster, env string) *Messages {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Messages{
		Events:    eventService,
		Regs:      regService,
		Oracle:    oracle,
		Notifier:  notifier,
		Webmaster: webmaster,
		Env:       env,
		policy:    bluemonday.UGCPolicy(),
	}
}

type messageInput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Filter  string `json:"filter"`
}

type messageResponse struct {
	Recipients int    `json:"recipients"`
	Filter     string `json:"filter"`
}

func (h *Messages) Send(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Event not found", err, h.Env)
		return
	}
	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, r, h.Env, err) {
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load event", err, h.Env)
		return
	}

	identity := auth.IdentityFromContext(r.Context())
	if !h.Oracle.CanChange(identity, auth.Resource{Kind: "event", OwnerEmail: event.OwnerEmail}) {
		problem.Write(w, r, http.StatusForbidden, problemForbidden, "Forbidden", events.ErrForbidden, h.Env)
		return
	}

	var input messageInput
	if !decodeJSON(w, r, h.Env, &input) {
		return
	}

	fields := map[string]string{}
	input.Subject = strings.TrimSpace(input.Subject)
	if input.Subject == "" {
		fields["subject"] = "is required"
	}
	if strings.TrimSpace(input.Body) == "" {
		fields["body"] = "is required"
	}
	view, ok := registrations.ParseRosterView(strings.TrimSpace(input.Filter))
	if !ok {
		fields["filter"] = "must be total, paid or non-paid"
	}
	if len(fields) > 0 {
		writeValidationError(w, r, h.Env, fields)
		return
	}

	recipients, _, err := h.Regs.Roster.View(r.Context(), event.ID, view)
	if err != nil {
		if writeDomainError(w, r, h.Env, err) {
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load recipients", err, h.Env)
		return
	}

	htmlBody := h.policy.Sanitize(input.Body)

	group, ctx := errgroup.WithContext(r.Context())
	group.SetLimit(8)
	for i := range recipients {
		registrant := recipients[i]
		group.Go(func() error {
			h.Notifier.Send(ctx, "registrants_message", []string{registrant.Email}, map[string]any{
				"subject":         input.Subject,
				"html_body":       htmlBody,
				"registrant_name": registrant.FullName(),
				"event_title":     event.Title,
			})
			return nil
		})
	}
	_ = group.Wait()

	summaryRecipients := []string{identity.Email}
	if h.Webmaster != "" && !strings.EqualFold(h.Webmaster, identity.Email) {
		summaryRecipients = append(summaryRecipients, h.Webmaster)
	}
	h.Notifier.Send(r.Context(), "registrants_message_summary", summaryRecipients, map[string]any{
		"subject":         input.Subject,
		"html_body":       htmlBody,
		"event_title":     event.Title,
		"recipient_count": len(recipients),
		"filter":          string(view),
	})

	audit.FromContext(r.Context()).Record(audit.CodeRegistrantsEmail,
		fmt.Sprintf("Registrants of event (%s) emailed by %s", event.ULID, identity), identity.String())

	writeJSON(w, http.StatusOK, messageResponse{Recipients: len(recipients), Filter: string(view)})
}
