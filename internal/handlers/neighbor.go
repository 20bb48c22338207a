package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// NeighborHandler provides admin HTTP handlers for neighbors and their
// ledgers.
type NeighborHandler struct {
	neighborService *services.NeighborService
	ledgerService   *services.LedgerService
}

func NewNeighborHandler(neighborService *services.NeighborService, ledgerService *services.LedgerService) *NeighborHandler {
	return &NeighborHandler{neighborService: neighborService, ledgerService: ledgerService}
}

// NeighborRouter registers neighbor routes. The caller mounts it behind the
// admin role check.
func NeighborRouter(r chi.Router, neighborService *services.NeighborService, ledgerService *services.LedgerService) {
	handler := NewNeighborHandler(neighborService, ledgerService)

	r.Get("/", handler.ListNeighbors)
	r.Post("/", handler.CreateNeighbor)
	r.Route("/{neighborID}", func(r chi.Router) {
		r.Get("/", handler.GetNeighbor)
		r.Put("/", handler.UpdateNeighbor)
		r.Delete("/", handler.DeleteNeighbor)
		r.Get("/balance", handler.GetBalance)
		r.Get("/charges", handler.ListCharges)
		r.Get("/payments", handler.ListPayments)
		r.Post("/payments", handler.CreatePayment)
	})
}

func (h *NeighborHandler) ListNeighbors(w http.ResponseWriter, r *http.Request) {
	neighbors, err := h.neighborService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list neighbors")
		return
	}
	writeJSON(w, http.StatusOK, neighbors)
}

func (h *NeighborHandler) GetNeighbor(w http.ResponseWriter, r *http.Request) {
	neighbor, err := h.neighborService.Get(r.Context(), neighborIDParam(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch neighbor")
		return
	}
	writeJSON(w, http.StatusOK, neighbor)
}

func (h *NeighborHandler) CreateNeighbor(w http.ResponseWriter, r *http.Request) {
	var req NeighborRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	neighbor, err := h.neighborService.Create(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, err, "failed to create neighbor")
		return
	}
	writeJSON(w, http.StatusCreated, neighbor)
}

func (h *NeighborHandler) UpdateNeighbor(w http.ResponseWriter, r *http.Request) {
	var req NeighborRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	neighbor, err := h.neighborService.Update(r.Context(), neighborIDParam(r), req.input())
	if err != nil {
		writeServiceError(w, r, err, "failed to update neighbor")
		return
	}
	writeJSON(w, http.StatusOK, neighbor)
}

func (h *NeighborHandler) DeleteNeighbor(w http.ResponseWriter, r *http.Request) {
	if err := h.neighborService.Delete(r.Context(), neighborIDParam(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete neighbor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NeighborHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledgerService.Balance(r.Context(), neighborIDParam(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *NeighborHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
	charges, err := h.ledgerService.Charges(r.Context(), neighborIDParam(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to list charges")
		return
	}
	writeJSON(w, http.StatusOK, charges)
}

func (h *NeighborHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.ledgerService.Payments(r.Context(), neighborIDParam(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *NeighborHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	recordPayment(w, r, h.ledgerService, neighborIDParam(r))
}

type NeighborRequest struct {
	UserID   *string `json:"user_id"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	HouseID  *string `json:"house_id"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

func (req NeighborRequest) input() services.NeighborInput {
	return services.NeighborInput{
		UserID:   req.UserID,
		Password: req.Password,
		Name:     req.Name,
		HouseID:  req.HouseID,
		Email:    req.Email,
		Phone:    req.Phone,
	}
}

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    *string         `json:"method"`
	Reference *string         `json:"reference"`
	Note      *string         `json:"note"`
	PaidAt    *time.Time      `json:"paid_at"`
}

type PaymentResponse struct {
	Payment types.Payment `json:"payment"`
	Balance types.Balance `json:"balance"`
}

// recordPayment is shared by the admin and self-service payment routes.
func recordPayment(w http.ResponseWriter, r *http.Request, ledgerService *services.LedgerService, userID string) {
	var req PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, balance, err := ledgerService.RecordPayment(r.Context(), userID, services.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Note:      req.Note,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to record payment")
		return
	}
	writeJSON(w, http.StatusCreated, PaymentResponse{Payment: payment, Balance: balance})
}

func neighborIDParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "neighborID")))
}
