package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/event"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httpclient"
)

const (
	// checkoutExpiryDuration is how long a checkout session remains valid.
	checkoutExpiryDuration = 30 * time.Minute
	// sweepInterval is how often expired sessions are reaped.
	sweepInterval = time.Minute
)

// CommitTimeouts holds per-step timeout configuration for the commit phase.
// A zero value means no per-step timeout (inherits the parent context timeout).
type CommitTimeouts struct {
	OrderTimeout  time.Duration
	PointsTimeout time.Duration
}

// checkoutSession is one shopper's in-flight checkout. It lives only in
// memory; abandoning it or restarting the process discards it, and a new
// checkout always starts from the cart again.
type checkoutSession struct {
	mu sync.Mutex

	ID            string
	Identity      domain.Identity
	Cart          domain.Cart
	Totals        domain.Totals
	Options       []domain.ShippingOption
	Limit         *domain.PointsLimit
	State         domain.CheckoutState
	PaymentMethod string
	Outcome       *domain.OrderOutcome

	// Supersede counters for this session's quote and limit fetches. They
	// are per session on purpose: a late response is stale only relative to
	// a newer request from the same session, never from another shopper's.
	shippingSeq atomic.Uint64
	loyaltySeq  atomic.Uint64

	CreatedAt time.Time
	ExpiresAt time.Time
}

// orderTotal is the amount charged before the points discount.
func (s *checkoutSession) orderTotal() int64 {
	total := s.Totals.Subtotal
	if s.State.Shipping != nil {
		total += s.State.Shipping.Cost
	}
	return total
}

// payable is the final charge after the points discount.
func (s *checkoutSession) payable() int64 {
	total := s.orderTotal() - s.State.Discount
	if total < 0 {
		total = 0
	}
	return total
}

func (s *checkoutSession) transition(to domain.Phase) error {
	if !domain.CanTransition(s.State.Phase, to) {
		return apperrors.Conflict(fmt.Sprintf("cannot move checkout from %s to %s", s.State.Phase, to))
	}
	s.State.Phase = to
	return nil
}

// CheckoutView is the session snapshot returned to callers.
type CheckoutView struct {
	ID              string                  `json:"id"`
	Phase           domain.Phase            `json:"phase"`
	Items           []domain.CartItem       `json:"items"`
	Totals          domain.Totals           `json:"totals"`
	Address         *domain.Address         `json:"address,omitempty"`
	ShippingOptions []domain.ShippingOption `json:"shipping_options,omitempty"`
	Shipping        *domain.ShippingOption  `json:"shipping,omitempty"`
	PointsLimit     *domain.PointsLimit     `json:"points_limit,omitempty"`
	PointsRequested int64                   `json:"points_requested"`
	Discount        int64                   `json:"discount"`
	Total           int64                   `json:"total"`
	Currency        string                  `json:"currency"`
	FailureMessage  string                  `json:"failure_message,omitempty"`
	Outcome         *domain.OrderOutcome    `json:"outcome,omitempty"`
	ExpiresAt       time.Time               `json:"expires_at"`
}

// view snapshots the session. Callers must hold s.mu.
func (s *checkoutSession) view() *CheckoutView {
	return &CheckoutView{
		ID:              s.ID,
		Phase:           s.State.Phase,
		Items:           s.Cart.Items,
		Totals:          s.Totals,
		Address:         s.State.Address,
		ShippingOptions: s.Options,
		Shipping:        s.State.Shipping,
		PointsLimit:     s.Limit,
		PointsRequested: s.State.PointsRequested,
		Discount:        s.State.Discount,
		Total:           s.payable(),
		Currency:        domain.Currency,
		FailureMessage:  s.State.FailureMessage,
		Outcome:         s.Outcome,
		ExpiresAt:       s.ExpiresAt,
	}
}

// CheckoutOrchestrator drives the checkout state machine: address selection,
// shipping pricing, loyalty points, and the two-phase submission against the
// commerce platform.
type CheckoutOrchestrator struct {
	carts     *CartService
	addresses *AddressService
	shipping  *ShippingQuoteResolver
	loyalty   *LoyaltyLimitCalculator
	producer  *event.Producer
	logger    *slog.Logger

	// commitClient performs the order and points POSTs. It must not retry:
	// a timed-out submission may have landed, and a duplicate order is
	// worse than a failed one the shopper can retry deliberately.
	commitClient HTTPDoer
	baseURL      string
	timeouts     CommitTimeouts

	mu       sync.Mutex
	sessions map[string]*checkoutSession

	now func() time.Time
}

// NewCheckoutOrchestrator creates a new checkout orchestrator.
func NewCheckoutOrchestrator(
	carts *CartService,
	addresses *AddressService,
	shipping *ShippingQuoteResolver,
	loyalty *LoyaltyLimitCalculator,
	producer *event.Producer,
	logger *slog.Logger,
	commitClient HTTPDoer,
	baseURL string,
	timeouts CommitTimeouts,
) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		carts:        carts,
		addresses:    addresses,
		shipping:     shipping,
		loyalty:      loyalty,
		producer:     producer,
		logger:       logger,
		commitClient: commitClient,
		baseURL:      baseURL,
		timeouts:     timeouts,
		sessions:     make(map[string]*checkoutSession),
		now:          time.Now,
	}
}

// Begin opens a checkout session from the identity's current cart. The cart
// is snapshotted: later cart edits do not leak into an open checkout.
func (o *CheckoutOrchestrator) Begin(ctx context.Context, identity domain.Identity) (*CheckoutView, error) {
	cartView, err := o.carts.GetCart(ctx, identity)
	if err != nil {
		return nil, err
	}
	if cartView.ItemCount == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := o.now().UTC()
	session := &checkoutSession{
		ID:        uuid.New().String(),
		Identity:  identity,
		Cart:      domain.Cart{Items: cartView.Items},
		Totals:    cartView.Totals,
		State:     domain.CheckoutState{Phase: domain.PhaseIdle},
		CreatedAt: now,
		ExpiresAt: now.Add(checkoutExpiryDuration),
	}

	o.mu.Lock()
	o.sessions[session.ID] = session
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "checkout session opened",
		slog.String("checkout_id", session.ID),
		slog.String("identity", identity.String()),
		slog.Int64("subtotal", session.Totals.Subtotal),
	)

	return session.view(), nil
}

// Get returns the current session snapshot.
func (o *CheckoutOrchestrator) Get(ctx context.Context, identity domain.Identity, sessionID string) (*CheckoutView, error) {
	session, err := o.session(identity, sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.view(), nil
}

// session looks up an unexpired session owned by the identity. Another
// identity's session reads as missing, never as forbidden, so session IDs
// cannot be probed.
func (o *CheckoutOrchestrator) session(identity domain.Identity, sessionID string) (*checkoutSession, error) {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	o.mu.Unlock()

	if !ok || session.Identity != identity {
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	if o.now().After(session.ExpiresAt) {
		o.mu.Lock()
		delete(o.sessions, sessionID)
		o.mu.Unlock()
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	return session, nil
}

// SelectAddress sets the delivery address and re-quotes shipping for it.
// Any previously chosen shipping method and points discount are reset, since
// both priced against the old destination.
func (o *CheckoutOrchestrator) SelectAddress(ctx context.Context, identity domain.Identity, sessionID, addressID string) (*CheckoutView, error) {
	session, err := o.session(identity, sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.transition(domain.PhaseAddressSelected); err != nil {
		return nil, err
	}

	address, err := o.addresses.Find(ctx, identity, addressID)
	if err != nil {
		return nil, err
	}

	options, err := o.shipping.Resolve(ctx, &session.shippingSeq, address.ID, session.Cart.TotalWeight())
	if err != nil && !errors.Is(err, ErrSuperseded) {
		return nil, err
	}

	// The old option set priced the old destination, so it is replaced
	// wholesale, never merged. A superseded quote leaves the set empty; the
	// newer resolve for this session installs its own.
	session.State.Address = address
	session.State.Shipping = nil
	session.State.PointsRequested = 0
	session.State.Discount = 0
	session.Limit = nil
	session.Options = options

	o.logger.InfoContext(ctx, "checkout address selected",
		slog.String("checkout_id", sessionID),
		slog.String("address_id", addressID),
		slog.Int("shipping_options", len(session.Options)),
	)

	return session.view(), nil
}

// SelectShipping picks one quoted method and prices the order: the loyalty
// limit is fetched for the pre-discount total and any requested points are
// re-clamped against it.
func (o *CheckoutOrchestrator) SelectShipping(ctx context.Context, identity domain.Identity, sessionID, methodID string) (*CheckoutView, error) {
	session, err := o.session(identity, sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.transition(domain.PhasePricing); err != nil {
		return nil, err
	}

	var chosen *domain.ShippingOption
	for i := range session.Options {
		if session.Options[i].MethodID == methodID {
			chosen = &session.Options[i]
			break
		}
	}
	if chosen == nil {
		return nil, apperrors.NotFound("shipping method", methodID)
	}
	session.State.Shipping = chosen

	// Without a limit the points ceiling is unknown, so a fetch failure
	// keeps the session in pricing; retrying the shipping selection retries
	// the fetch.
	limit, err := o.loyalty.FetchLimit(ctx, &session.loyaltySeq, identity, session.orderTotal())
	if err != nil {
		session.Limit = nil
		return nil, err
	}
	session.Limit = &limit

	session.State.PointsRequested = session.Limit.ClampPoints(session.State.PointsRequested)
	session.State.Discount = session.Limit.DiscountFor(session.State.PointsRequested)

	if err := session.transition(domain.PhaseReadyToSubmit); err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "checkout priced",
		slog.String("checkout_id", sessionID),
		slog.String("shipping_method", methodID),
		slog.Int64("total", session.payable()),
	)

	return session.view(), nil
}

// SetPoints sets the requested points redemption. The request is clamped to
// the session's limit, so asking for too much silently yields the maximum;
// the clamp is idempotent and a repeated call is a no-op.
func (o *CheckoutOrchestrator) SetPoints(ctx context.Context, identity domain.Identity, sessionID string, points int64) (*CheckoutView, error) {
	if points < 0 {
		return nil, apperrors.InvalidInput("points must not be negative")
	}

	session, err := o.session(identity, sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	// Changing points reprices the order, so it follows the same
	// ready -> pricing -> ready path a shipping change does.
	if err := session.transition(domain.PhasePricing); err != nil {
		return nil, err
	}

	if session.Limit == nil || !session.Limit.Eligible {
		session.State.PointsRequested = 0
		session.State.Discount = 0
	} else {
		session.State.PointsRequested = session.Limit.ClampPoints(points)
		session.State.Discount = session.Limit.DiscountFor(session.State.PointsRequested)
	}

	if err := session.transition(domain.PhaseReadyToSubmit); err != nil {
		return nil, err
	}

	return session.view(), nil
}

// Submit runs the two-phase commit: create the order, then confirm the
// points redemption. The order request never carries points; redemption is
// a distinct phase, and the points call runs even at zero points so the
// platform always records the order's loyalty accrual. A points failure
// after a created order still completes the checkout; the outcome carries
// a warning and a reconciliation event is published instead.
func (o *CheckoutOrchestrator) Submit(ctx context.Context, identity domain.Identity, sessionID, paymentMethod string) (*CheckoutView, error) {
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	session, err := o.session(identity, sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.State.Shipping == nil || session.State.Address == nil {
		session.mu.Unlock()
		return nil, apperrors.InvalidInput("address and shipping method must be chosen before submitting")
	}
	// A second submit while one is in flight fails here: submitting is not
	// reachable from submitting or confirming_points.
	if err := session.transition(domain.PhaseSubmitting); err != nil {
		session.mu.Unlock()
		return nil, err
	}
	session.State.FailureMessage = ""
	session.PaymentMethod = paymentMethod
	points := session.State.PointsRequested
	session.mu.Unlock()

	outcome, err := o.createOrder(ctx, session)
	if err != nil {
		session.mu.Lock()
		defer session.mu.Unlock()
		session.State.Phase = domain.PhaseFailed
		session.State.FailureMessage = err.Error()

		o.logger.ErrorContext(ctx, "order submission failed",
			slog.String("checkout_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	session.mu.Lock()
	session.State.Phase = domain.PhaseConfirmingPoints
	session.mu.Unlock()

	confirmed, err := o.confirmPoints(ctx, outcome.OrderID, outcome.Subtotal, outcome.ShippingCost, points)
	if err != nil {
		outcome.PointsPhaseSucceeded = false
		outcome.Warning = "order placed, but loyalty points could not be settled; they will be reconciled shortly"

		o.logger.ErrorContext(ctx, "points confirmation failed after order creation",
			slog.String("checkout_id", sessionID),
			slog.String("order_id", outcome.OrderID),
			slog.Int64("points", points),
			slog.String("error", err.Error()),
		)

		if pubErr := o.producer.PublishCheckoutPointsFailed(ctx, sessionID, identity, outcome.OrderID, points, err.Error()); pubErr != nil {
			o.logger.ErrorContext(ctx, "failed to publish checkout.points_failed event",
				slog.String("checkout_id", sessionID),
				slog.String("error", pubErr.Error()),
			)
		}
	} else {
		outcome.PointsPhaseSucceeded = true
		// The confirmation recomputes the authoritative figures. The local
		// estimate stands in only when the response omits them.
		if confirmed.TotalFinal > 0 {
			outcome.DiscountApplied = confirmed.DiscountApplied
			outcome.Total = confirmed.TotalFinal
		}
		outcome.PointsEarned = confirmed.PointsEarned
	}

	session.mu.Lock()
	session.State.Phase = domain.PhaseDone
	session.Outcome = outcome
	view := session.view()
	session.mu.Unlock()

	// The order owns the items now; the cart starts over.
	if err := o.carts.ClearCart(ctx, identity, "order_placed"); err != nil {
		o.logger.ErrorContext(ctx, "failed to clear cart after order",
			slog.String("checkout_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if err := o.producer.PublishCheckoutCompleted(ctx, sessionID, identity, outcome, points); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.String("checkout_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	o.logger.InfoContext(ctx, "checkout completed",
		slog.String("checkout_id", sessionID),
		slog.String("order_id", outcome.OrderID),
		slog.Int64("total", outcome.Total),
		slog.Bool("points_settled", outcome.PointsPhaseSucceeded),
	)

	return view, nil
}

// Abandon discards a session. A checkout with a commit in flight cannot be
// abandoned; a finished one can, as cleanup.
func (o *CheckoutOrchestrator) Abandon(ctx context.Context, identity domain.Identity, sessionID string) error {
	session, err := o.session(identity, sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	inFlight := session.State.Phase.InFlight()
	session.mu.Unlock()
	if inFlight {
		return apperrors.Conflict("cannot abandon a checkout with a submission in flight")
	}

	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "checkout session abandoned",
		slog.String("checkout_id", sessionID),
	)

	return nil
}

// StartSweeper reaps expired sessions until ctx is cancelled.
func (o *CheckoutOrchestrator) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.sweep()
			}
		}
	}()
}

func (o *CheckoutOrchestrator) sweep() {
	now := o.now()
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, session := range o.sessions {
		session.mu.Lock()
		expired := now.After(session.ExpiresAt) && !session.State.Phase.InFlight()
		session.mu.Unlock()
		if expired {
			delete(o.sessions, id)
		}
	}
}

type orderItemPayload struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// orderRequest carries no points fields: redemption is settled in its own
// phase once the order id exists.
type orderRequest struct {
	AddressID      string             `json:"address_id"`
	PaymentMethod  string             `json:"payment_method"`
	ShippingMethod string             `json:"shipping_method"`
	Items          []orderItemPayload `json:"items"`
	Currency       string             `json:"currency"`
}

type orderResponse struct {
	OrderID      string `json:"order_id"`
	Subtotal     int64  `json:"subtotal"`
	ShippingCost int64  `json:"shipping_cost"`
}

type pointsConfirmRequest struct {
	OrderID      string `json:"order_id"`
	Subtotal     int64  `json:"subtotal"`
	ShippingCost int64  `json:"shipping_cost"`
	PointsToUse  int64  `json:"points_to_use"`
}

type pointsConfirmResponse struct {
	DiscountApplied int64 `json:"discount_applied"`
	TotalFinal      int64 `json:"total_final"`
	PointsEarned    int64 `json:"points_earned"`
}

const defaultPaymentMethod = "card"

// createOrder posts the order to the commerce platform. Amounts in the
// outcome are the platform's when its response carries them, the session's
// estimate otherwise.
func (o *CheckoutOrchestrator) createOrder(ctx context.Context, session *checkoutSession) (*domain.OrderOutcome, error) {
	if o.timeouts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeouts.OrderTimeout)
		defer cancel()
	}

	session.mu.Lock()
	payload := orderRequest{
		AddressID:      session.State.Address.ID,
		PaymentMethod:  session.PaymentMethod,
		ShippingMethod: session.State.Shipping.MethodID,
		Items:          make([]orderItemPayload, len(session.Cart.Items)),
		Currency:       domain.Currency,
	}
	for i, item := range session.Cart.Items {
		payload.Items[i] = orderItemPayload{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	subtotal := session.Totals.Subtotal
	shippingCost := session.State.Shipping.Cost
	discount := session.State.Discount
	total := session.payable()
	session.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.commitClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "orders")
	}

	var orderResp orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if orderResp.OrderID == "" {
		return nil, fmt.Errorf("order response missing order id")
	}
	if orderResp.Subtotal > 0 {
		subtotal = orderResp.Subtotal
	}
	if orderResp.ShippingCost > 0 {
		shippingCost = orderResp.ShippingCost
	}

	return &domain.OrderOutcome{
		OrderID:         orderResp.OrderID,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		DiscountApplied: discount,
		Total:           total,
	}, nil
}

// confirmPoints settles the loyalty redemption for an order. It runs for
// every order, including zero-point ones, so the platform can finalize
// accrual in the same place. The response recomputes the authoritative
// discount and final total; an empty body is tolerated.
func (o *CheckoutOrchestrator) confirmPoints(ctx context.Context, orderID string, subtotal, shippingCost, points int64) (pointsConfirmResponse, error) {
	var confirmed pointsConfirmResponse

	if o.timeouts.PointsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeouts.PointsTimeout)
		defer cancel()
	}

	payload := pointsConfirmRequest{
		OrderID:      orderID,
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		PointsToUse:  points,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return confirmed, fmt.Errorf("marshal points confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/v1/loyalty/confirm", bytes.NewReader(body))
	if err != nil {
		return confirmed, fmt.Errorf("create points confirmation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.commitClient.Do(ctx, req)
	if err != nil {
		return confirmed, fmt.Errorf("call loyalty confirm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return confirmed, httpclient.ParseResponseError(resp, "loyalty confirm")
	}

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&confirmed); err != nil {
			o.logger.WarnContext(ctx, "points confirmation response undecodable, keeping local totals",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
			confirmed = pointsConfirmResponse{}
		}
	}

	return confirmed, nil
}
