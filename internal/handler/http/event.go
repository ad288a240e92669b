package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/pkg/httputil"
	"github.com/azha0089/HealthyLife/pkg/middleware"
	"github.com/azha0089/HealthyLife/pkg/validator"
)

// EventHandler handles HTTP requests for community event endpoints.
type EventHandler struct {
	service *service.EventService
	logger  *slog.Logger
}

// NewEventHandler creates a new event HTTP handler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: svc, logger: logger}
}

// EventRequest is the JSON request body for submitting or editing an event.
type EventRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Time        string  `json:"time" validate:"required,max=100"`
	Type        string  `json:"type" validate:"required,oneof='Sport' 'Food Bank' 'Healthy Seminar'"`
	Suburb      string  `json:"suburb" validate:"required,max=100"`
	Address     string  `json:"address" validate:"omitempty,max=300"`
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
}

func (req EventRequest) toInput() service.EventInput {
	return service.EventInput{
		Name:        req.Name,
		Time:        req.Time,
		Type:        req.Type,
		Suburb:      req.Suburb,
		Address:     req.Address,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Description: req.Description,
	}
}

// List handles GET /api/v1/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.service.ListApproved(r.Context(), q.Get("suburb"), q.Get("type"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, events)
}

// Get handles GET /api/v1/events/{eventId}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), actorFrom(r), chi.URLParam(r, "eventId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, e)
}

// Submit handles POST /api/v1/events
func (h *EventHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	e, err := h.service.Submit(r.Context(), actorFrom(r), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, e)
}

// Book handles POST /api/v1/events/{eventId}/bookings
func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Book(r.Context(), chi.URLParam(r, "eventId"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, e)
}

// CancelBooking handles DELETE /api/v1/events/{eventId}/bookings
func (h *EventHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelBooking(r.Context(), chi.URLParam(r, "eventId"), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyBookings handles GET /api/v1/bookings/me
func (h *EventHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListUserBookings(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, bookings)
}

// ListPending handles GET /api/v1/admin/events/pending
func (h *EventHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, events)
}

// CreateApproved handles POST /api/v1/admin/events
func (h *EventHandler) CreateApproved(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	e, err := h.service.CreateApproved(r.Context(), actorFrom(r), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, e)
}

// Approve handles POST /api/v1/admin/events/{eventId}/approve
func (h *EventHandler) Approve(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Approve(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, e)
}

// Reject handles POST /api/v1/admin/events/{eventId}/reject
func (h *EventHandler) Reject(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Reject(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, e)
}

// Update handles PUT /api/v1/admin/events/{eventId}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	e, err := h.service.Update(r.Context(), chi.URLParam(r, "eventId"), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, e)
}

// Delete handles DELETE /api/v1/admin/events/{eventId}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "eventId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
