package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"yatra/internal/notify"
	"yatra/internal/transport/http/shared"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// Handler exposes the operator broadcast routes.
type Handler struct {
	logger *slog.Logger
	notify *notify.Service
}

func New(svc *notify.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, notify: svc}
}

// RegisterOperator wires the broadcast routes onto the given router.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/broadcasts", h.handleBroadcast)
	r.Post("/broadcasts/preview", h.handlePreview)
}

type broadcastRequest struct {
	Target  notify.Target `json:"target"`
	Message string        `json:"message"`
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Message, "1", "1000") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "message must be 1-1000 characters"))
		return
	}

	receipt, err := h.notify.Broadcast(r.Context(), notify.BroadcastRequest{
		Target:  req.Target,
		Message: req.Message,
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "broadcast failed", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, receipt)
}

// handlePreview resolves the audience without dispatching anything, so an
// operator can sanity-check a target before sending.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	recipients, err := h.notify.Recipients(r.Context(), req.Target)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "recipient preview failed", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"recipients": recipients,
		"count":      len(recipients),
	})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
