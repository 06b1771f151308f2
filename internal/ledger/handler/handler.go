package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"yatra/internal/ledger"
	"yatra/internal/safety"
	"yatra/internal/transport/http/shared"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// Tracker starts safety tracking for a freshly issued identity.
type Tracker interface {
	Track(ctx context.Context, token id.TouristToken) (safety.Record, error)
}

// Handler exposes the registration and identity routes.
type Handler struct {
	logger     *slog.Logger
	identities *ledger.Service
	tracker    Tracker
}

func New(identities *ledger.Service, tracker Tracker, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, identities: identities, tracker: tracker}
}

// Register wires the identity routes onto the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tourists/register", h.handleRegister)
	r.Get("/tourists/{token}", h.handleLookup)
}

// RegisterOperator wires the operator-only ledger routes.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/ledger/verify", h.handleVerify)
}

type registerRequest struct {
	KYC               ledger.KYCPayload `json:"kyc"`
	Itinerary         []string          `json:"itinerary"`
	EmergencyContacts []string          `json:"emergencyContacts"`
	TripDurationDays  int               `json:"tripDurationDays"`
}

type registerResponse struct {
	DigitalID  id.TouristToken `json:"digital_id"`
	ValidUntil time.Time       `json:"valid_until"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateRegisterRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.identities.Issue(r.Context(), req.KYC, req.Itinerary, req.EmergencyContacts, req.TripDurationDays)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logError(r, "registration failed", err)
		}
		shared.WriteError(w, err)
		return
	}

	if _, err := h.tracker.Track(r.Context(), record.Token); err != nil {
		h.logError(r, "failed to start safety tracking", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "registration incomplete"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		DigitalID:  record.Token,
		ValidUntil: record.ValidUntil,
	})
}

// lookupResponse is the tourist-facing projection. Itinerary and emergency
// contacts stay off the open route; anyone holding a token can call it.
type lookupResponse struct {
	Token      id.TouristToken `json:"token"`
	KYCHash    string          `json:"kyc_hash"`
	IssuedAt   time.Time       `json:"issued_at"`
	ValidUntil time.Time       `json:"valid_until"`
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	token, err := id.ParseTouristToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.identities.Lookup(r.Context(), token)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, lookupResponse{
		Token:      record.Token,
		KYCHash:    record.KYCHash,
		IssuedAt:   record.IssuedAt,
		ValidUntil: record.ValidUntil,
	})
}

type verifyResponse struct {
	OK     bool   `json:"ok"`
	BadSeq uint64 `json:"bad_seq,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ok, badSeq, err := h.identities.Verify(r.Context())
	if err != nil {
		h.logError(r, "chain verification failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse{OK: ok, BadSeq: badSeq})
}

func validateRegisterRequest(req registerRequest) error {
	if !govalidator.StringLength(req.KYC.FullName, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid fullName")
	}
	if !govalidator.StringLength(req.KYC.DocumentNumber, "1", "64") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid documentNumber")
	}
	if req.KYC.DateOfBirth != "" && !govalidator.IsTime(req.KYC.DateOfBirth, "2006-01-02") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid dateOfBirth")
	}
	if req.KYC.PhoneNumber != "" && !govalidator.StringLength(req.KYC.PhoneNumber, "5", "20") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid phoneNumber")
	}
	return nil
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
