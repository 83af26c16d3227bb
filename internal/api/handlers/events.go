package handlers

import (
	"errors"
	"net/http"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
)

// Events serves the event CRUD and listing routes.
type Events struct {
	Service *events.Service
	Env     string
}

func NewEvents(service *events.Service, env string) *Events {
	return &Events{Service: service, Env: env}
}

type eventListResponse struct {
	Events     []eventPayload `json:"events"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func (h *Events) List(w http.ResponseWriter, r *http.Request) {
	filters, pagination, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		var filterErr events.FilterError
		if errors.As(err, &filterErr) {
			problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid filter", err, h.Env,
				problem.WithErrors(map[string]any{filterErr.Field: filterErr.Message}))
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid filter", err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), filters, pagination)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to list events", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, eventListResponse{
		Events:     serializeEvents(result.Events),
		NextCursor: result.NextCursor,
	})
}

func (h *Events) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Event not found", err, h.Env)
		return
	}

	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, r, h.Env, err) {
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load event", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, serializeEvent(event))
}

func (h *Events) Create(w http.ResponseWriter, r *http.Request) {
	var input events.EventInput
	if !decodeJSON(w, r, h.Env, &input) {
		return
	}

	event, err := h.Service.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err, "Failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, serializeEvent(event))
}

func (h *Events) Update(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Event not found", err, h.Env)
		return
	}

	var input events.EventInput
	if !decodeJSON(w, r, h.Env, &input) {
		return
	}

	event, err := h.Service.Update(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err, "Failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, serializeEvent(event))
}

func (h *Events) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Event not found", err, h.Env)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Events) writeError(w http.ResponseWriter, r *http.Request, err error, title string) {
	var validationErr *events.ValidationError
	if errors.As(err, &validationErr) {
		writeValidationError(w, r, h.Env, validationErr.Fields)
		return
	}
	if writeDomainError(w, r, h.Env, err) {
		return
	}
	problem.Write(w, r, http.StatusInternalServerError, problemServerError, title, err, h.Env)
}
