package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httputil"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	orchestrator *service.CheckoutOrchestrator
	logger       *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(orchestrator *service.CheckoutOrchestrator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// SelectAddressRequest is the JSON request body for choosing a delivery address.
type SelectAddressRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

// SelectShippingRequest is the JSON request body for choosing a shipping method.
type SelectShippingRequest struct {
	MethodID string `json:"method_id" validate:"required"`
}

// SetPointsRequest is the JSON request body for requesting a points redemption.
type SetPointsRequest struct {
	Points int64 `json:"points" validate:"gte=0"`
}

// SubmitRequest is the JSON request body for submitting a checkout. The body
// is optional; an absent payment method falls back to the default simulated
// one.
type SubmitRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// Begin handles POST /api/v1/checkout
// Opens a checkout session from the current cart.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	view, err := h.orchestrator.Begin(r.Context(), identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: view})
}

// Get handles GET /api/v1/checkout/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.orchestrator.Get(r.Context(), identityFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SelectAddress handles PUT /api/v1/checkout/{id}/address
func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	var req SelectAddressRequest
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

	view, err := h.orchestrator.SelectAddress(r.Context(), identityFromRequest(r), chi.URLParam(r, "id"), req.AddressID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SelectShipping handles PUT /api/v1/checkout/{id}/shipping
func (h *CheckoutHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req SelectShippingRequest
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

	view, err := h.orchestrator.SelectShipping(r.Context(), identityFromRequest(r), chi.URLParam(r, "id"), req.MethodID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SetPoints handles PUT /api/v1/checkout/{id}/points
// The requested amount is clamped server-side; the response carries the
// points actually applied.
func (h *CheckoutHandler) SetPoints(w http.ResponseWriter, r *http.Request) {
	var req SetPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	view, err := h.orchestrator.SetPoints(r.Context(), identityFromRequest(r), chi.URLParam(r, "id"), req.Points)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// Submit handles POST /api/v1/checkout/{id}/submit
// A points-settlement failure after a created order is a success with a
// warning, never an error: the shopper has an order either way.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	view, err := h.orchestrator.Submit(r.Context(), identityFromRequest(r), chi.URLParam(r, "id"), req.PaymentMethod)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := httputil.Response{Data: view}
	if view.Outcome != nil && !view.Outcome.PointsPhaseSucceeded {
		resp.Warning = view.Outcome.Warning
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Abandon handles DELETE /api/v1/checkout/{id}
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Abandon(r.Context(), identityFromRequest(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
