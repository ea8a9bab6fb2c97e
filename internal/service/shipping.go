package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// ShippingQuoteResolver fetches shipping options from the commerce platform.
// Quotes depend on the destination and the cart weight, so every address or
// cart change triggers a new quote. Each request tags itself on the caller's
// sequence counter; a response whose tag is no longer the newest for that
// counter is discarded, so a slow quote for an old address can never
// overwrite a fresh one. The counter belongs to the caller (one per checkout
// session), never to the resolver: quotes from unrelated sessions must not
// supersede each other.
type ShippingQuoteResolver struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewShippingQuoteResolver creates a new shipping quote resolver.
func NewShippingQuoteResolver(client HTTPDoer, baseURL string, logger *slog.Logger) *ShippingQuoteResolver {
	return &ShippingQuoteResolver{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Resolve fetches shipping options for an address and cart weight. Options
// come back sorted by cost ascending. A response superseded by a newer call
// on the same seq counter returns ErrSuperseded and must be ignored;
// upstream failure surfaces as a shipping-unavailable condition that blocks
// checkout past shipping.
func (s *ShippingQuoteResolver) Resolve(ctx context.Context, seq *atomic.Uint64, addressID string, weightGrams int64) ([]domain.ShippingOption, error) {
	if addressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}
	if weightGrams < 0 {
		return nil, apperrors.InvalidInput("weight must not be negative")
	}

	tag := seq.Add(1)

	query := url.Values{}
	query.Set("address_id", addressID)
	query.Set("weight", strconv.FormatInt(weightGrams, 10))

	var out struct {
		Options []domain.ShippingOption `json:"options"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/api/v1/shipping/quote?"+query.Encode(), "shipping quote", &out); err != nil {
		if seq.Load() != tag {
			return nil, ErrSuperseded
		}
		// A quote failure is not fatal to the session, but checkout cannot
		// proceed until a fresh quote succeeds.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Status < 500 {
			return nil, err
		}
		return nil, apperrors.ShippingUnavailable(fmt.Sprintf("shipping quote failed: %v", err))
	}

	if seq.Load() != tag {
		s.logger.DebugContext(ctx, "discarding stale shipping quote",
			slog.String("address_id", addressID),
			slog.Uint64("tag", tag),
		)
		return nil, ErrSuperseded
	}

	if len(out.Options) == 0 {
		return nil, apperrors.ShippingUnavailable("no shipping methods serve this address")
	}

	sort.SliceStable(out.Options, func(i, j int) bool {
		return out.Options[i].Cost < out.Options[j].Cost
	})

	s.logger.InfoContext(ctx, "shipping quote resolved",
		slog.String("address_id", addressID),
		slog.Int64("weight_grams", weightGrams),
		slog.Int("option_count", len(out.Options)),
	)

	return out.Options, nil
}
