package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yatra/internal/alert/models"
	"yatra/internal/alert/service"
	"yatra/internal/transport/http/shared"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// Handler exposes the operator-facing alert routes. The router mounts it
// behind operator auth; transitions carry the operator id from context.
type Handler struct {
	logger *slog.Logger
	alerts *service.Service
}

func New(alerts *service.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, alerts: alerts}
}

// Register wires the alert routes onto the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/alerts", h.handleList)
	r.Get("/alerts/{alertID}", h.handleGet)
	r.Post("/alerts/{alertID}/acknowledge", h.handleAcknowledge)
	r.Post("/alerts/{alertID}/resolve", h.handleResolve)
	r.Post("/alerts/{alertID}/false-alarm", h.handleFalseAlarm)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		status = &parsed
	}

	alerts, err := h.alerts.List(r.Context(), status)
	if err != nil {
		h.logError(r, "failed to list alerts", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	alert, err := h.alerts.Get(r.Context(), alertID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, alert)
}

// transitionRequest is the optional body for resolve/false-alarm.
type transitionRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(alertID id.AlertID, by string, _ string) (*models.Alert, error) {
		return h.alerts.Acknowledge(r.Context(), alertID, by)
	})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(alertID id.AlertID, by, notes string) (*models.Alert, error) {
		return h.alerts.Resolve(r.Context(), alertID, by, notes)
	})
}

func (h *Handler) handleFalseAlarm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(alertID id.AlertID, by, notes string) (*models.Alert, error) {
		return h.alerts.MarkFalseAlarm(r.Context(), alertID, by, notes)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(id.AlertID, string, string) (*models.Alert, error)) {
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	by := requestcontext.OperatorID(r.Context())
	if by == "" {
		// Should never happen behind RequireOperator.
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "operator context missing"))
		return
	}

	var req transitionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
	}

	alert, err := apply(alertID, by, req.Notes)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "alert transition failed", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, alert)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
