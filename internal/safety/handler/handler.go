package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yatra/internal/geofence"
	"yatra/internal/safety"
	"yatra/internal/transport/http/shared"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// Handler exposes the tourist-facing safety routes and the dashboard list.
type Handler struct {
	logger *slog.Logger
	safety *safety.Service
}

func New(svc *safety.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, safety: svc}
}

// Register wires the safety routes onto the given router.
func (h *Handler) Register(r chi.Router) {
	r.Patch("/tourists/{token}/location", h.handleLocation)
	r.Post("/tourists/{token}/distress", h.handleDistress)
	r.Get("/tourists/{token}/safety", h.handleGet)
}

// RegisterOperator wires the dashboard list route.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/tourists", h.handleList)
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (h *Handler) handleLocation(w http.ResponseWriter, r *http.Request) {
	token, err := id.ParseTouristToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Lat == nil || req.Lng == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "lat and lng are required"))
		return
	}

	record, err := h.safety.RecordLocation(r.Context(), token, geofence.Point{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "location update failed", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleDistress(w http.ResponseWriter, r *http.Request) {
	token, err := id.ParseTouristToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var loc *geofence.Point
	if r.Body != nil && r.ContentLength != 0 {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
		if req.Lat != nil && req.Lng != nil {
			loc = &geofence.Point{Lat: *req.Lat, Lng: *req.Lng}
		}
	}

	record, err := h.safety.RecordDistress(r.Context(), token, loc)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "distress signal failed", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	token, err := id.ParseTouristToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.safety.Get(r.Context(), token)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

// listItem is the dashboard projection; no identity fields leave this route.
type listItem struct {
	Token        id.TouristToken `json:"token"`
	LastLocation *geofence.Point `json:"last_location,omitempty"`
	SafetyStatus safety.Status   `json:"safety_status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.safety.List(r.Context())
	if err != nil {
		h.logError(r, "failed to list safety records", err)
		shared.WriteError(w, err)
		return
	}

	items := make([]listItem, 0, len(records))
	for _, record := range records {
		items = append(items, listItem{
			Token:        record.Token,
			LastLocation: record.LastLocation,
			SafetyStatus: record.SafetyStatus,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"tourists": items})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
