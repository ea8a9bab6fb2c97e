package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httputil"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/validator"
)

// FavoritesHandler handles HTTP requests for saved items.
type FavoritesHandler struct {
	service *service.FavoritesService
	logger  *slog.Logger
}

// NewFavoritesHandler creates a new favorites HTTP handler.
func NewFavoritesHandler(svc *service.FavoritesService, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		service: svc,
		logger:  logger,
	}
}

// SaveFavoriteRequest is the JSON request body for saving an item.
type SaveFavoriteRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
}

// List handles GET /api/v1/favorites
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// Save handles POST /api/v1/favorites
func (h *FavoritesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	items, err := h.service.Save(r.Context(), identityFromRequest(r), service.SaveFavoriteInput{
		VariantID: req.VariantID,
		ProductID: req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// Remove handles DELETE /api/v1/favorites/{variantID}
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Remove(r.Context(), identityFromRequest(r), chi.URLParam(r, "variantID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}
