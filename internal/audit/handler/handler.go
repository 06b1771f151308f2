package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"yatra/internal/audit"
	"yatra/internal/transport/http/shared"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

const defaultRecentLimit = 100

// Handler exposes the operator audit trail routes.
type Handler struct {
	logger    *slog.Logger
	publisher *audit.Publisher
}

func New(publisher *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, publisher: publisher}
}

// RegisterOperator wires the audit routes onto the given router.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/audit/recent", h.handleRecent)
	r.Get("/tourists/{token}/audit", h.handleByToken)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events, err := h.publisher.ListRecent(r.Context(), limit)
	if err != nil {
		h.logError(r, "failed to list audit events", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleByToken(w http.ResponseWriter, r *http.Request) {
	token, err := id.ParseTouristToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	events, err := h.publisher.ListByToken(r.Context(), string(token))
	if err != nil {
		h.logError(r, "failed to list audit trail", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit trail"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
