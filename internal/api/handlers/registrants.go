package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/registrations"
)

// Registrants serves the organizer-facing roster, search and export
// routes.
type Registrants struct {
	Events *events.Service
	Regs   *registrations.Service
	Oracle auth.Oracle
	Env    string
}

func NewRegistrants(eventService *events.Service, regService *registrations.Service, oracle auth.Oracle, env string) *Registrants {
	return &Registrants{Events: eventService, Regs: regService, Oracle: oracle, Env: env}
}

type rosterResponse struct {
	View        string              `json:"view"`
	Registrants []registrantPayload `json:"registrants"`
	Totals      totalsPayload       `json:"totals"`
}

type totalsPayload struct {
	TotalCents   int64 `json:"totalCents"`
	BalanceCents int64 `json:"balanceCents"`
	PaidCount    int   `json:"paidCount"`
	OwingCount   int   `json:"owingCount"`
}

// Roster lists an event's registrants filtered by view (total, paid,
// non-paid) with the invoice totals.
func (h *Registrants) Roster(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	view, ok := registrations.ParseRosterView(pathParam(r, "view"))
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid roster view", nil, h.Env,
			problem.WithErrors(map[string]any{"view": "must be total, paid or non-paid"}))
		return
	}

	items, totals, err := h.Regs.Roster.View(r.Context(), event.ID, view)
	if err != nil {
		h.writeError(w, r, err, "Failed to load roster")
		return
	}

	writeJSON(w, http.StatusOK, rosterResponse{
		View:        string(view),
		Registrants: serializeRegistrants(items),
		Totals: totalsPayload{
			TotalCents:   totals.TotalCents,
			BalanceCents: totals.BalanceCents,
			PaidCount:    totals.PaidCount,
			OwingCount:   totals.OwingCount,
		},
	})
}

type registrantSearchResponse struct {
	Registrants []registrantPayload `json:"registrants"`
}

// Search matches name, email and company within one event.
func (h *Registrants) Search(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := h.Regs.Roster.Search(r.Context(), event.ID, query)
	if err != nil {
		h.writeError(w, r, err, "Failed to search registrants")
		return
	}
	writeJSON(w, http.StatusOK, registrantSearchResponse{Registrants: serializeRegistrants(items)})
}

// Export streams the roster as a CSV attachment. Changing-level access is
// required: the file carries emails and phone numbers.
func (h *Registrants) Export(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	identity := auth.IdentityFromContext(r.Context())
	if !h.Oracle.CanChange(identity, auth.Resource{Kind: "roster", OwnerEmail: event.OwnerEmail}) {
		problem.Write(w, r, http.StatusForbidden, problemForbidden, "Forbidden", registrations.ErrForbidden, h.Env)
		return
	}

	view, ok := registrations.ParseRosterView(strings.TrimSpace(r.URL.Query().Get("view")))
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid roster view", nil, h.Env,
			problem.WithErrors(map[string]any{"view": "must be total, paid or non-paid"}))
		return
	}

	items, _, err := h.Regs.Roster.View(r.Context(), event.ID, view)
	if err != nil {
		h.writeError(w, r, err, "Failed to export roster")
		return
	}

	filename := registrations.ExportFilename(event.Title, view)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := registrations.WriteCSV(w, items); err != nil {
		// Headers are gone; all we can do is log through the problem path.
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to stream export", err, h.Env)
	}
}

// Details returns one registrant by id for an organizer or the registrant
// themselves.
func (h *Registrants) Details(w http.ResponseWriter, r *http.Request) {
	registrant, err := h.Regs.Lookup.Confirmation(r.Context(), pathParam(r, "registrantId"))
	if err != nil {
		h.writeError(w, r, err, "Failed to load registrant")
		return
	}
	writeRegistrant(w, registrant)
}

func (h *Registrants) loadEvent(w http.ResponseWriter, r *http.Request) (*events.Event, bool) {
	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Event not found", err, h.Env)
		return nil, false
	}
	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, r, h.Env, err) {
			return nil, false
		}
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load event", err, h.Env)
		return nil, false
	}
	return event, true
}

func (h *Registrants) writeError(w http.ResponseWriter, r *http.Request, err error, title string) {
	var validationErr *registrations.ValidationError
	if errors.As(err, &validationErr) {
		writeValidationError(w, r, h.Env, validationErr.Fields)
		return
	}
	if writeDomainError(w, r, h.Env, err) {
		return
	}
	problem.Write(w, r, http.StatusInternalServerError, problemServerError, title, err, h.Env)
}
