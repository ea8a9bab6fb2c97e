package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/event"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/repository"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
	// MaxUnitPrice is the maximum unit price in céntimos allowed per item.
	MaxUnitPrice = 10_000_000_00
)

// cartSchemaVersion tags stored cart documents. Bump it when the cart item
// shape changes; older documents are then discarded on load.
const cartSchemaVersion = 1

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	VariantID   string            `json:"variant_id" validate:"required"`
	ProductID   string            `json:"product_id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	UnitPrice   int64             `json:"unit_price" validate:"required,gt=0"`
	Quantity    int               `json:"quantity" validate:"gte=0"`
	WeightGrams int64             `json:"weight_grams" validate:"gte=0"`
	Attributes  map[string]string `json:"attributes"`
}

// UpdateQuantityInput holds the parameters for updating a line quantity.
// Zero and negative quantities remove the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CartView is a cart together with its derived totals, the shape every cart
// operation returns.
type CartView struct {
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Totals    domain.Totals     `json:"totals"`
	Currency  string            `json:"currency"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	carts    *ScopedCollection[domain.Cart]
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts *ScopedCollection[domain.Cart], producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		producer: producer,
		logger:   logger,
	}
}

// NewCartCollection builds the identity-scoped cart collection.
func NewCartCollection(repo repository.CollectionRepository) *ScopedCollection[domain.Cart] {
	return NewScopedCollection(repo, "cart", cartSchemaVersion, func() domain.Cart { return domain.Cart{} })
}

func cartView(cart *domain.Cart) *CartView {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return &CartView{
		Items:     items,
		ItemCount: cart.ItemCount(),
		Totals:    cart.Totals(domain.TaxRateBasisPoints),
		Currency:  domain.Currency,
	}
}

// GetCart retrieves the identity's cart. A missing cart reads as empty.
func (s *CartService) GetCart(ctx context.Context, identity domain.Identity) (*CartView, error) {
	cart, err := s.carts.Load(ctx, identity)
	if err != nil {
		return nil, err
	}
	return cartView(&cart), nil
}

// AddItem adds an item to the identity's cart, merging with an existing line
// for the same variant.
func (s *CartService) AddItem(ctx context.Context, identity domain.Identity, input AddItemInput) (*CartView, error) {
	if input.VariantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.UnitPrice <= 0 {
		return nil, apperrors.InvalidInput("unit price must be greater than 0")
	}
	if input.UnitPrice > MaxUnitPrice {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unit price must not exceed %d céntimos", MaxUnitPrice))
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.carts.Mutate(ctx, identity, func(c *domain.Cart) error {
		if idx := c.FindItemIndex(input.VariantID); idx < 0 && len(c.Items) >= MaxItemsPerCart {
			return apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		c.AddItem(domain.CartItem{
			VariantID:   input.VariantID,
			ProductID:   input.ProductID,
			Name:        input.Name,
			UnitPrice:   input.UnitPrice,
			WeightGrams: input.WeightGrams,
			Attributes:  input.Attributes,
		}, input.Quantity)
		if idx := c.FindItemIndex(input.VariantID); idx >= 0 && c.Items[idx].Quantity > MaxQuantityPerItem {
			return apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, identity, &cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("variant_id", input.VariantID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return cartView(&cart), nil
}

// UpdateQuantity sets the quantity for a cart line. Zero or negative removes
// the line; a second identical call is a no-op on an already-removed line.
func (s *CartService) UpdateQuantity(ctx context.Context, identity domain.Identity, variantID string, input UpdateQuantityInput) (*CartView, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.carts.Mutate(ctx, identity, func(c *domain.Cart) error {
		if !c.UpdateQuantity(variantID, input.Quantity) && input.Quantity > 0 {
			return apperrors.NotFound("cart item", variantID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, identity, &cart)

	return cartView(&cart), nil
}

// RemoveItem removes a line from the identity's cart. Removing a line that
// is not present is not an error.
func (s *CartService) RemoveItem(ctx context.Context, identity domain.Identity, variantID string) (*CartView, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}

	cart, err := s.carts.Mutate(ctx, identity, func(c *domain.Cart) error {
		c.RemoveItem(variantID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, identity, &cart)

	return cartView(&cart), nil
}

// ClearCart empties the identity's cart.
func (s *CartService) ClearCart(ctx context.Context, identity domain.Identity, reason string) error {
	if err := s.carts.Clear(ctx, identity); err != nil {
		return err
	}

	if err := s.producer.PublishCartCleared(ctx, identity, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("identity", identity.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("identity", identity.String()),
		slog.String("reason", reason),
	)

	return nil
}

func (s *CartService) publishUpdated(ctx context.Context, identity domain.Identity, cart *domain.Cart) {
	// Events are best effort; a broker outage must not fail the operation.
	if err := s.producer.PublishCartUpdated(ctx, identity, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("identity", identity.String()),
			slog.String("error", err.Error()),
		)
	}
}
