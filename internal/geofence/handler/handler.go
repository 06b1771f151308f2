package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yatra/internal/audit"
	"yatra/internal/geofence"
	"yatra/internal/transport/http/shared"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// Handler exposes the zone management routes. All writes are operator actions
// and leave an audit trail entry.
type Handler struct {
	logger *slog.Logger
	index  *geofence.Index
	audit  *audit.Publisher
}

func New(index *geofence.Index, publisher *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, index: index, audit: publisher}
}

// Register wires the read routes onto the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/geofences", h.handleList)
	r.Get("/geofences/{fenceID}", h.handleGet)
}

// RegisterOperator wires the write routes.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/geofences", h.handleCreate)
	r.Patch("/geofences/{fenceID}", h.handleUpdate)
	r.Delete("/geofences/{fenceID}", h.handleRemove)
}

type createRequest struct {
	Name      string            `json:"name"`
	RiskLevel string            `json:"risk_level"`
	Category  string            `json:"category"`
	Geometry  geofence.Geometry `json:"geometry"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	risk, err := geofence.ParseRiskLevel(req.RiskLevel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	fenceID, err := h.index.Add(r.Context(), geofence.GeoFence{
		Name:      req.Name,
		RiskLevel: risk,
		Category:  req.Category,
		IsActive:  true,
		Geometry:  req.Geometry,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(r, audit.ActionFenceCreated, fenceID, fmt.Sprintf("name=%q risk=%s", req.Name, risk))
	fence, err := h.index.Get(r.Context(), fenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, fence)
}

type updateRequest struct {
	Name      *string            `json:"name"`
	RiskLevel *string            `json:"risk_level"`
	Category  *string            `json:"category"`
	IsActive  *bool              `json:"is_active"`
	Geometry  *geofence.Geometry `json:"geometry"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	fenceID, err := id.ParseFenceID(chi.URLParam(r, "fenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	patch := geofence.Patch{
		Name:     req.Name,
		Category: req.Category,
		IsActive: req.IsActive,
		Geometry: req.Geometry,
	}
	if req.RiskLevel != nil {
		risk, err := geofence.ParseRiskLevel(*req.RiskLevel)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		patch.RiskLevel = &risk
	}

	fence, err := h.index.Update(r.Context(), fenceID, patch)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(r, audit.ActionFenceUpdated, fenceID, fmt.Sprintf("name=%q risk=%s active=%t", fence.Name, fence.RiskLevel, fence.IsActive))
	shared.WriteJSON(w, http.StatusOK, fence)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	fenceID, err := id.ParseFenceID(chi.URLParam(r, "fenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.index.Remove(r.Context(), fenceID); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(r, audit.ActionFenceDeactivated, fenceID, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	fenceID, err := id.ParseFenceID(chi.URLParam(r, "fenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	fence, err := h.index.Get(r.Context(), fenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, fence)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	fences := h.index.List(r.Context(), onlyActive)
	shared.WriteJSON(w, http.StatusOK, map[string]any{"geofences": fences})
}

func (h *Handler) emit(r *http.Request, action audit.Action, fenceID id.FenceID, detail string) {
	if h.audit == nil {
		return
	}
	ctx := r.Context()
	event := audit.Event{
		Action:    action,
		Actor:     requestcontext.OperatorID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    fmt.Sprintf("fence=%s", fenceID),
	}
	if detail != "" {
		event.Detail += " " + detail
	}
	h.audit.Emit(ctx, event)
}
