package http

import (
	"log/slog"
	"net/http"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httputil"
)

// AddressHandler exposes the shopper's upstream address book read-only.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /api/v1/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.service.List(r.Context(), identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addresses})
}
