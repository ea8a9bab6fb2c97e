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

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// AddItemRequest is the JSON request body for adding an item.
type AddItemRequest struct {
	VariantID   string            `json:"variant_id" validate:"required"`
	ProductID   string            `json:"product_id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	UnitPrice   int64             `json:"unit_price" validate:"required,gt=0"`
	Quantity    int               `json:"quantity" validate:"gte=0"`
	WeightGrams int64             `json:"weight_grams" validate:"gte=0"`
	Attributes  map[string]string `json:"attributes"`
}

// UpdateQuantityRequest is the JSON request body for changing a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddItemRequest
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

	view, err := h.service.AddItem(r.Context(), identityFromRequest(r), service.AddItemInput{
		VariantID:   req.VariantID,
		ProductID:   req.ProductID,
		Name:        req.Name,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		WeightGrams: req.WeightGrams,
		Attributes:  req.Attributes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{variantID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	view, err := h.service.UpdateQuantity(r.Context(), identityFromRequest(r), variantID, service.UpdateQuantityInput{Quantity: req.Quantity})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// RemoveItem handles DELETE /api/v1/cart/items/{variantID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")

	view, err := h.service.RemoveItem(r.Context(), identityFromRequest(r), variantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), identityFromRequest(r), "user_request"); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
