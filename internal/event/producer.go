package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	pkgkafka "github.com/JoseMS22/JyA-Innersport-sub000/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated          = "storefront.cart.updated"
	TopicCartCleared          = "storefront.cart.cleared"
	TopicCheckoutCompleted    = "storefront.checkout.completed"
	TopicCheckoutPointsFailed = "storefront.checkout.points_failed"
)

// Aggregate type constants.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeCheckout = "checkout"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Identity  string `json:"identity"`
	ItemCount int    `json:"item_count"`
	Subtotal  int64  `json:"subtotal"`
	Currency  string `json:"currency"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}

// CheckoutCompletedData is the payload for a checkout.completed event.
type CheckoutCompletedData struct {
	CheckoutID      string `json:"checkout_id"`
	Identity        string `json:"identity"`
	OrderID         string `json:"order_id"`
	Total           int64  `json:"total"`
	DiscountApplied int64  `json:"discount_applied"`
	PointsRedeemed  int64  `json:"points_redeemed"`
	PointsEarned    int64  `json:"points_earned"`
	Currency        string `json:"currency"`
}

// CheckoutPointsFailedData is the payload for a checkout.points_failed event.
// The order exists; only the loyalty settlement is outstanding.
type CheckoutPointsFailedData struct {
	CheckoutID string `json:"checkout_id"`
	Identity   string `json:"identity"`
	OrderID    string `json:"order_id"`
	Points     int64  `json:"points"`
	Reason     string `json:"reason"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event after any mutation.
func (p *Producer) PublishCartUpdated(ctx context.Context, identity domain.Identity, cart *domain.Cart) error {
	data := CartUpdatedData{
		Identity:  identity.String(),
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Totals(domain.TaxRateBasisPoints).Subtotal,
		Currency:  domain.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, identity.String(), AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("identity", identity.String()),
		slog.Int("item_count", data.ItemCount),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, identity domain.Identity, reason string) error {
	data := CartClearedData{
		Identity: identity.String(),
		Reason:   reason,
	}

	event, err := pkgkafka.NewEvent(TopicCartCleared, identity.String(), AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("identity", identity.String()),
		slog.String("reason", reason),
	)

	return nil
}

// PublishCheckoutCompleted publishes a checkout.completed event.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, checkoutID string, identity domain.Identity, outcome *domain.OrderOutcome, pointsRedeemed int64) error {
	data := CheckoutCompletedData{
		CheckoutID:      checkoutID,
		Identity:        identity.String(),
		OrderID:         outcome.OrderID,
		Total:           outcome.Total,
		DiscountApplied: outcome.DiscountApplied,
		PointsRedeemed:  pointsRedeemed,
		PointsEarned:    outcome.PointsEarned,
		Currency:        domain.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutCompleted, checkoutID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutCompleted, event); err != nil {
		return fmt.Errorf("publish checkout.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.completed event",
		slog.String("checkout_id", checkoutID),
		slog.String("order_id", outcome.OrderID),
	)

	return nil
}

// PublishCheckoutPointsFailed publishes a checkout.points_failed event so a
// downstream reconciler can settle the loyalty redemption out of band.
func (p *Producer) PublishCheckoutPointsFailed(ctx context.Context, checkoutID string, identity domain.Identity, orderID string, points int64, reason string) error {
	data := CheckoutPointsFailedData{
		CheckoutID: checkoutID,
		Identity:   identity.String(),
		OrderID:    orderID,
		Points:     points,
		Reason:     reason,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutPointsFailed, checkoutID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.points_failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutPointsFailed, event); err != nil {
		return fmt.Errorf("publish checkout.points_failed event: %w", err)
	}

	p.logger.WarnContext(ctx, "published checkout.points_failed event",
		slog.String("checkout_id", checkoutID),
		slog.String("order_id", orderID),
		slog.Int64("points", points),
	)

	return nil
}
