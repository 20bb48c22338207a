package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/shopspring/decimal"
)

// NeighborhoodHandler reads and writes the association configuration.
type NeighborhoodHandler struct {
	neighborhoodService *services.NeighborhoodService
}

func NewNeighborhoodHandler(neighborhoodService *services.NeighborhoodService) *NeighborhoodHandler {
	return &NeighborhoodHandler{neighborhoodService: neighborhoodService}
}

// NeighborhoodRouter registers the configuration routes. The caller mounts
// it behind the admin role check.
func NeighborhoodRouter(r chi.Router, neighborhoodService *services.NeighborhoodService) {
	handler := NewNeighborhoodHandler(neighborhoodService)

	r.Get("/", handler.GetNeighborhood)
	r.Post("/", handler.SaveNeighborhood)
	r.Put("/", handler.SaveNeighborhood)
}

func (h *NeighborhoodHandler) GetNeighborhood(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.neighborhoodService.Get(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, r, err, "failed to fetch neighborhood")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *NeighborhoodHandler) SaveNeighborhood(w http.ResponseWriter, r *http.Request) {
	var req NeighborhoodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.neighborhoodService.Save(r.Context(), services.NeighborhoodInput{
		Name:        req.Name,
		Periodicity: req.Periodicity,
		Amount:      req.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to save neighborhood")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type NeighborhoodRequest struct {
	Name        string          `json:"name"`
	Periodicity string          `json:"periodicity"`
	Amount      decimal.Decimal `json:"amount"`
}
