package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/registrations"
	"github.com/gatherly/server/internal/metrics"
)

// Registrations serves the sign-up workflow, confirmations and
// cancellations. The closed outcome is not an error: it redirects back to
// the event page with the reason in the query string.
type Registrations struct {
	Events  *events.Service
	Regs    *registrations.Service
	BaseURL string
	Env     string
}

func NewRegistrations(eventService *events.Service, regService *registrations.Service, baseURL, env string) *Registrations {
	return &Registrations{Events: eventService, Regs: regService, BaseURL: baseURL, Env: env}
}

type decisionResponse struct {
	State      string             `json:"state"`
	Reason     string             `json:"reason,omitempty"`
	Registrant *registrantPayload `json:"registrant,omitempty"`
	PaymentURL string             `json:"paymentUrl,omitempty"`
}

// Begin reports where the caller stands before showing the form. A free
// event auto-registers an authenticated caller.
func (h *Registrations) Begin(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	decision, err := h.Regs.Workflow.Begin(r.Context(), event)
	if err != nil {
		h.writeError(w, r, err, "Failed to begin registration")
		return
	}
	h.writeDecision(w, r, event, decision)
}

// Register takes the filled form.
func (h *Registrations) Register(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var input registrations.RegistrantInput
	if !decodeJSON(w, r, h.Env, &input) {
		return
	}

	decision, err := h.Regs.Workflow.Register(r.Context(), event, input)
	if err != nil {
		h.writeError(w, r, err, "Failed to register")
		return
	}
	h.writeDecision(w, r, event, decision)
}

// Confirmation returns the registrant by id for an authenticated caller.
func (h *Registrations) Confirmation(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	registrant, err := h.Regs.Lookup.Confirmation(r.Context(), pathParam(r, "registrantId"))
	if err != nil {
		h.writeError(w, r, err, "Failed to load confirmation")
		return
	}
	if registrant.EventID != event.ID {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Registrant not found", registrations.ErrNotFound, h.Env)
		return
	}
	writeRegistrant(w, registrant)
}

// ConfirmationByHash returns the registrant holding the mailed token.
// Possession of the token is the only credential.
func (h *Registrations) ConfirmationByHash(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	registrant, err := h.Regs.Lookup.ConfirmationByHash(r.Context(), event.ID, pathParam(r, "hash"))
	if err != nil {
		h.writeError(w, r, err, "Failed to load confirmation")
		return
	}
	writeRegistrant(w, registrant)
}

// Cancel withdraws a registration on behalf of an authenticated caller.
func (h *Registrations) Cancel(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	registrant, err := h.Regs.Canceller.CancelByID(r.Context(), event, pathParam(r, "registrantId"))
	if err != nil {
		h.writeError(w, r, err, "Failed to cancel registration")
		return
	}
	metrics.RegistrationsCancelledTotal.WithLabelValues("id").Inc()
	writeRegistrant(w, registrant)
}

// CancelByHash withdraws a registration with the mailed token.
func (h *Registrations) CancelByHash(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	registrant, err := h.Regs.Canceller.CancelByHash(r.Context(), event, pathParam(r, "hash"))
	if err != nil {
		h.writeError(w, r, err, "Failed to cancel registration")
		return
	}
	metrics.RegistrationsCancelledTotal.WithLabelValues("hash").Inc()
	writeRegistrant(w, registrant)
}

func (h *Registrations) loadEvent(w http.ResponseWriter, r *http.Request) (*events.Event, bool) {
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

func (h *Registrations) writeDecision(w http.ResponseWriter, r *http.Request, event *events.Event, decision registrations.Decision) {
	metrics.RegistrationsTotal.WithLabelValues(string(decision.State)).Inc()

	if decision.State == registrations.StateClosedRejected {
		location := fmt.Sprintf("%s/events/%s?closed=%s", h.BaseURL, event.ULID, decision.Reason)
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}

	response := decisionResponse{State: string(decision.State)}
	if decision.Registrant != nil {
		payload := serializeRegistrant(decision.Registrant)
		response.Registrant = &payload
	}
	if decision.State == registrations.StatePaymentPending {
		response.PaymentURL = fmt.Sprintf("%s/payments/%s?guard=%s", h.BaseURL, decision.InvoiceID, decision.InvoiceGuard)
	}

	status := http.StatusOK
	if decision.State == registrations.StateConfirmed || decision.State == registrations.StatePaymentPending {
		status = http.StatusCreated
	}
	writeJSON(w, status, response)
}

func (h *Registrations) writeError(w http.ResponseWriter, r *http.Request, err error, title string) {
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

func writeRegistrant(w http.ResponseWriter, registrant *registrations.Registrant) {
	writeJSON(w, http.StatusOK, serializeRegistrant(registrant))
}
