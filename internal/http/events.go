package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/service"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// EventHandler serves the protected event endpoints. Every request reaching
// these handlers has already been authorized by the session pipeline.
type EventHandler struct {
	Events *service.EventService
}

type createEventRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SubcategoryID string    `json:"subcategory_id"`
	StartsAt      time.Time `json:"starts_at"`
}

type eventResponse struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	SubcategoryID string    `json:"subcategory_id,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Title:         e.Title,
		Description:   e.Description,
		SubcategoryID: e.SubcategoryID,
		StartsAt:      e.StartsAt,
		CreatedAt:     e.CreatedAt,
	}
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type pollResponse struct {
	ID       string   `json:"id"`
	EventID  string   `json:"event_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func toPollResponse(p domain.Poll) pollResponse {
	return pollResponse{ID: p.ID, EventID: p.EventID, Question: p.Question, Options: p.Options}
}

// CreateEvent handles POST /v1/events.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Events.CreateEvent(r.Context(), userID, req.Title, req.Description, req.SubcategoryID, req.StartsAt)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			httpx.WriteError(w, http.StatusBadRequest, "title and starts_at are required")
			return
		}
		slogx.FromContext(r.Context()).Error("create event failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toEventResponse(e))
}

// GetEvent handles GET /v1/events/{id}.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.Events.GetEventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "event not found")
			return
		}
		slogx.FromContext(r.Context()).Error("get event failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toEventResponse(e))
}

// ListEvents handles GET /v1/events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListEvents(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list events failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// CreatePoll handles POST /v1/events/{id}/polls.
func (h *EventHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Events.CreatePoll(r.Context(), r.PathValue("id"), req.Question, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, service.ErrInvalidEvent):
			httpx.WriteError(w, http.StatusBadRequest, "question and at least two options are required")
		default:
			slogx.FromContext(r.Context()).Error("create poll failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toPollResponse(p))
}

// ListPolls handles GET /v1/events/{id}/polls.
func (h *EventHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.Events.ListEventPolls(r.Context(), r.PathValue("id"))
	if err != nil {
		slogx.FromContext(r.Context()).Error("list polls failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]pollResponse, 0, len(polls))
	for _, p := range polls {
		out = append(out, toPollResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
