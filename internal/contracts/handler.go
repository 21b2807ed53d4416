package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/undercity/backend/internal/middleware"
	"github.com/undercity/backend/internal/models"
)

// SettlementService is the engine surface the HTTP layer consumes.
type SettlementService interface {
	Create(ctx context.Context, posterID, targetID uuid.UUID, price int) (*models.Contract, error)
	ListAvailable(ctx context.Context, viewerID uuid.UUID) ([]*ContractView, error)
	Fulfill(ctx context.Context, callerID, contractID uuid.UUID) (*FulfillResult, error)
	GhostAssassin(ctx context.Context, callerID, targetID uuid.UUID) (*GhostResult, error)
	Reward(ctx context.Context, callerID, contractID uuid.UUID) (*RewardInfo, error)
	FightResult(ctx context.Context, contractID uuid.UUID) (json.RawMessage, error)
}

type Handler struct {
	Svc    SettlementService
	Logger *slog.Logger
}

func NewHandler(svc SettlementService, logger *slog.Logger) *Handler {
	return &Handler{Svc: svc, Logger: logger}
}

type createRequest struct {
	TargetID string `json:"target_id"`
	Price    int    `json:"price"`
}

// Create handles POST /api/v1/contracts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		http.Error(w, `{"error":"invalid target_id"}`, http.StatusBadRequest)
		return
	}
	c, err := h.Svc.Create(r.Context(), callerID, targetID, req.Price)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"contract": c})
}

// ListAvailable handles GET /api/v1/contracts.
func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	views, err := h.Svc.ListAvailable(r.Context(), callerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": views})
}

// Accept handles POST /api/v1/contracts/{id}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	contractID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid contract id"}`, http.StatusBadRequest)
		return
	}
	result, err := h.Svc.Fulfill(r.Context(), callerID, contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// A lost fight is a 200 with success=false, not an error.
	writeJSON(w, http.StatusOK, result)
}

type ghostRequest struct {
	TargetID string `json:"target_id"`
}

// GhostAssassin handles POST /api/v1/contracts/ghost-assassin.
func (h *Handler) GhostAssassin(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req ghostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		http.Error(w, `{"error":"invalid target_id"}`, http.StatusBadRequest)
		return
	}
	result, err := h.Svc.GhostAssassin(r.Context(), callerID, targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"narrative": result.Narrative,
		"target_id": result.TargetID,
	})
}

// Reward handles GET /api/v1/contracts/{id}/reward.
func (h *Handler) Reward(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	contractID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid contract id"}`, http.StatusBadRequest)
		return
	}
	info, err := h.Svc.Reward(r.Context(), callerID, contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Result handles GET /api/v1/contracts/{id}/result.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	contractID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid contract id"}`, http.StatusBadRequest)
		return
	}
	result, err := h.Svc.FightResult(r.Context(), contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fight_result": result})
}

// writeError maps engine failures to stable HTTP categories. Anything
// unmapped is an internal error and logged.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfTarget),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientBlackcoins),
		errors.Is(err, ErrContractNotOpen),
		errors.Is(err, ErrContractNotFulfilled),
		errors.Is(err, ErrContractExpired),
		errors.Is(err, ErrAlreadyFulfilled):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrForbiddenParty), errors.Is(err, ErrNotContractAssassin):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTargetNotFound),
		errors.Is(err, ErrContractNotFound),
		errors.Is(err, ErrNoFightResult):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error("settlement failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
