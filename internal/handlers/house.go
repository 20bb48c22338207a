package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
)

// HouseHandler provides HTTP handlers for houses.
type HouseHandler struct {
	houseService *services.HouseService
}

func NewHouseHandler(houseService *services.HouseService) *HouseHandler {
	return &HouseHandler{houseService: houseService}
}

// HouseRouter registers house routes. The caller mounts it behind the admin
// role check.
func HouseRouter(r chi.Router, houseService *services.HouseService) {
	handler := NewHouseHandler(houseService)

	r.Get("/", handler.ListHouses)
	r.Post("/", handler.CreateHouse)
	r.Route("/{houseID}", func(r chi.Router) {
		r.Get("/", handler.GetHouse)
		r.Put("/", handler.UpdateHouse)
		r.Delete("/", handler.DeleteHouse)
	})
}

func (h *HouseHandler) ListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := h.houseService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list houses")
		return
	}
	writeJSON(w, http.StatusOK, houses)
}

func (h *HouseHandler) GetHouse(w http.ResponseWriter, r *http.Request) {
	house, err := h.houseService.Get(r.Context(), houseIDParam(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch house")
		return
	}
	writeJSON(w, http.StatusOK, house)
}

func (h *HouseHandler) CreateHouse(w http.ResponseWriter, r *http.Request) {
	var req HouseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	house, err := h.houseService.Create(r.Context(), services.HouseInput{ID: req.ID, Owner: req.Owner})
	if err != nil {
		writeServiceError(w, r, err, "failed to create house")
		return
	}
	writeJSON(w, http.StatusCreated, house)
}

func (h *HouseHandler) UpdateHouse(w http.ResponseWriter, r *http.Request) {
	var req HouseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	house, err := h.houseService.Update(r.Context(), houseIDParam(r), services.HouseInput{ID: req.ID, Owner: req.Owner})
	if err != nil {
		writeServiceError(w, r, err, "failed to update house")
		return
	}
	writeJSON(w, http.StatusOK, house)
}

func (h *HouseHandler) DeleteHouse(w http.ResponseWriter, r *http.Request) {
	if err := h.houseService.Delete(r.Context(), houseIDParam(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete house")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type HouseRequest struct {
	ID    *string `json:"id"`
	Owner *string `json:"owner"`
}

func houseIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "houseID"))
}
