package service

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// LoyaltyLimitCalculator fetches the redemption ceiling for an order from
// the commerce platform and pairs it with the member's live balance. Limits
// depend on the order total, so every repricing fetches a new one; stale
// responses are tag-discarded against the caller's sequence counter the same
// way shipping quotes are. One counter per checkout session, so repricings
// in unrelated sessions never supersede each other.
type LoyaltyLimitCalculator struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewLoyaltyLimitCalculator creates a new loyalty limit calculator.
func NewLoyaltyLimitCalculator(client HTTPDoer, baseURL string, logger *slog.Logger) *LoyaltyLimitCalculator {
	return &LoyaltyLimitCalculator{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchLimit returns the redemption limit for an order total. Guests are
// never eligible and skip the upstream round trip entirely. A response
// superseded by a newer call on the same seq counter returns ErrSuperseded
// and must be ignored.
func (c *LoyaltyLimitCalculator) FetchLimit(ctx context.Context, seq *atomic.Uint64, identity domain.Identity, orderTotal int64) (domain.PointsLimit, error) {
	if orderTotal < 0 {
		return domain.PointsLimit{}, apperrors.InvalidInput("order total must not be negative")
	}

	if identity.IsGuest() {
		return domain.PointsLimit{Reason: "loyalty points require a signed-in account"}, nil
	}

	tag := seq.Add(1)

	query := url.Values{}
	query.Set("order_total", strconv.FormatInt(orderTotal, 10))

	var limitOut struct {
		Eligible           bool   `json:"eligible"`
		Reason             string `json:"reason"`
		MaxDiscount        int64  `json:"max_discount"`
		PointsNeededForMax int64  `json:"points_needed_for_max"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/api/v1/loyalty/limit?"+query.Encode(), "loyalty limit", &limitOut); err != nil {
		if seq.Load() != tag {
			return domain.PointsLimit{}, ErrSuperseded
		}
		return domain.PointsLimit{}, err
	}

	limit := domain.PointsLimit{
		Eligible:           limitOut.Eligible,
		Reason:             limitOut.Reason,
		MaxDiscount:        limitOut.MaxDiscount,
		PointsNeededForMax: limitOut.PointsNeededForMax,
	}

	if limit.Eligible {
		balance, err := c.FetchBalance(ctx)
		if err != nil {
			if seq.Load() != tag {
				return domain.PointsLimit{}, ErrSuperseded
			}
			return domain.PointsLimit{}, err
		}
		limit.AvailableBalance = balance
	}

	if seq.Load() != tag {
		c.logger.DebugContext(ctx, "discarding stale loyalty limit",
			slog.Int64("order_total", orderTotal),
			slog.Uint64("tag", tag),
		)
		return domain.PointsLimit{}, ErrSuperseded
	}

	c.logger.InfoContext(ctx, "loyalty limit fetched",
		slog.Int64("order_total", orderTotal),
		slog.Bool("eligible", limit.Eligible),
		slog.Int64("max_redeemable", limit.MaxRedeemablePoints()),
	)

	return limit, nil
}

// FetchBalance returns the member's current points balance.
func (c *LoyaltyLimitCalculator) FetchBalance(ctx context.Context) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/api/v1/loyalty/balance", "loyalty balance", &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}
