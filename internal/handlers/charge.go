package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// ChargeHandler provides admin handlers for charges.
type ChargeHandler struct {
	ledgerService *services.LedgerService
}

func NewChargeHandler(ledgerService *services.LedgerService) *ChargeHandler {
	return &ChargeHandler{ledgerService: ledgerService}
}

// ChargeRouter registers charge routes. The caller mounts it behind the
// admin role check.
func ChargeRouter(r chi.Router, ledgerService *services.LedgerService) {
	handler := NewChargeHandler(ledgerService)

	r.Post("/", handler.CreateCharge)
	r.Post("/generate", handler.GenerateCharges)
	r.Delete("/{chargeID}", handler.DeleteCharge)
}

func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req ChargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	charge, err := h.ledgerService.CreateCharge(r.Context(), services.ChargeInput{
		UserID: req.UserID,
		Period: req.Period,
		Amount: req.Amount,
		Note:   req.Note,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create charge")
		return
	}
	writeJSON(w, http.StatusCreated, charge)
}

func (h *ChargeHandler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "chargeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledgerService.DeleteCharge(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete charge")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCharges charges every neighbor for a period, the current month
// when the body names none.
func (h *ChargeHandler) GenerateCharges(w http.ResponseWriter, r *http.Request) {
	var req GenerateChargesRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledgerService.GenerateCharges(r.Context(), req.Period)
	if err != nil {
		writeServiceError(w, r, err, "failed to generate charges")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ChargeRequest struct {
	UserID string          `json:"user_id"`
	Period types.Period    `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Note   *string         `json:"note"`
}

type GenerateChargesRequest struct {
	Period types.Period `json:"period"`
}
