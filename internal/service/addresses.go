package service

import (
	"context"
	"log/slog"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// AddressService reads the shopper's address book from the commerce platform.
// Addresses are owned upstream; the storefront never writes them.
type AddressService struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(client HTTPDoer, baseURL string, logger *slog.Logger) *AddressService {
	return &AddressService{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// List returns the signed-in shopper's saved addresses.
func (s *AddressService) List(ctx context.Context, identity domain.Identity) ([]domain.Address, error) {
	if identity.IsGuest() {
		return nil, apperrors.Unauthorized("sign in to use saved addresses")
	}

	var out struct {
		Addresses []domain.Address `json:"addresses"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/api/v1/addresses", "addresses", &out); err != nil {
		return nil, err
	}

	if out.Addresses == nil {
		return []domain.Address{}, nil
	}
	return out.Addresses, nil
}

// Find returns one saved address by ID.
func (s *AddressService) Find(ctx context.Context, identity domain.Identity, addressID string) (*domain.Address, error) {
	if addressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}

	addresses, err := s.List(ctx, identity)
	if err != nil {
		return nil, err
	}

	for i := range addresses {
		if addresses[i].ID == addressID {
			return &addresses[i], nil
		}
	}

	return nil, apperrors.NotFound("address", addressID)
}
