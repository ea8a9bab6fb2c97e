package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	redisrepo "github.com/JoseMS22/JyA-Innersport-sub000/internal/repository/redis"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httpclient"
)

// fakePlatform stands in for the commerce platform during orchestrator tests.
type fakePlatform struct {
	server *httptest.Server

	orderStatus    atomic.Int32 // 0 means 201
	confirmStatus  atomic.Int32 // 0 means 204
	orderCalls     atomic.Int32
	confirmCalls   atomic.Int32
	lastOrderBody  atomic.Pointer[orderRequest]
	lastConfirmReq atomic.Pointer[pointsConfirmRequest]
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/addresses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"addresses":[
			{"id":"addr-1","province":"San José","canton":"Escazú","district":"San Rafael","detail":"Casa 12","is_default":true},
			{"id":"addr-2","province":"Guanacaste","canton":"Liberia","district":"Liberia","detail":"Barrio Condega"}
		]}`))
	})

	mux.HandleFunc("/api/v1/shipping/quote", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"options":[
			{"method_id":"express","name":"Express 24h","cost":450000,"eta_min_days":1,"eta_max_days":1},
			{"method_id":"standard","name":"Estándar","cost":250000,"eta_min_days":2,"eta_max_days":4}
		]}`))
	})

	mux.HandleFunc("/api/v1/loyalty/limit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"eligible":true,"max_discount":300000,"points_needed_for_max":300}`))
	})

	mux.HandleFunc("/api/v1/loyalty/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"balance":500}`))
	})

	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		p.orderCalls.Add(1)
		var body orderRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.lastOrderBody.Store(&body)

		if status := int(p.orderStatus.Load()); status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"code":"ORDER_REJECTED","message":"item out of stock"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id":"ord-789","subtotal":1500000,"shipping_cost":250000}`))
	})

	mux.HandleFunc("/api/v1/loyalty/confirm", func(w http.ResponseWriter, r *http.Request) {
		p.confirmCalls.Add(1)
		var body pointsConfirmRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.lastConfirmReq.Store(&body)

		if status := int(p.confirmStatus.Load()); status != 0 {
			w.WriteHeader(status)
			return
		}

		// Recompute the authoritative figures at ₡1,000 per point, the same
		// factor the limit endpoint advertises.
		resp := pointsConfirmResponse{
			DiscountApplied: body.PointsToUse * 1000,
			TotalFinal:      body.Subtotal + body.ShippingCost - body.PointsToUse*1000,
			PointsEarned:    42,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

type checkoutFixture struct {
	orchestrator *CheckoutOrchestrator
	carts        *CartService
	platform     *fakePlatform
	identity     domain.Identity
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := redisrepo.NewCollectionRepository(client, time.Hour)

	logger := testLogger()
	producer := testProducer()
	platform := newFakePlatform(t)

	readCfg := httpclient.DefaultConfig()
	readCfg.MaxRetries = 0
	readClient := httpclient.New(readCfg)
	commitClient := httpclient.New(httpclient.CommitConfig())

	carts := NewCartService(NewCartCollection(repo), producer, logger)
	orchestrator := NewCheckoutOrchestrator(
		carts,
		NewAddressService(readClient, platform.server.URL, logger),
		NewShippingQuoteResolver(readClient, platform.server.URL, logger),
		NewLoyaltyLimitCalculator(readClient, platform.server.URL, logger),
		producer,
		logger,
		commitClient,
		platform.server.URL,
		CommitTimeouts{},
	)

	return &checkoutFixture{
		orchestrator: orchestrator,
		carts:        carts,
		platform:     platform,
		identity:     domain.User("user-001"),
	}
}

// seedCart puts one item in the cart: 2 units at ₡7,500 IVA-inclusive each.
func (f *checkoutFixture) seedCart(t *testing.T) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), f.identity, AddItemInput{
		VariantID:   "v-1",
		ProductID:   "prod-1",
		Name:        "Camiseta técnica",
		UnitPrice:   7500_00,
		Quantity:    2,
		WeightGrams: 300,
	})
	require.NoError(t, err)
}

// toReady walks a session to ready_to_submit with the standard method chosen.
func (f *checkoutFixture) toReady(t *testing.T) *CheckoutView {
	t.Helper()
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	view, err = f.orchestrator.SelectAddress(ctx, f.identity, view.ID, "addr-1")
	require.NoError(t, err)

	view, err = f.orchestrator.SelectShipping(ctx, f.identity, view.ID, "standard")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseReadyToSubmit, view.Phase)
	return view
}

func TestCheckoutOrchestrator_Begin(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)

	view, err := f.orchestrator.Begin(context.Background(), f.identity)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, view.Phase)
	assert.Equal(t, int64(15000_00), view.Totals.Subtotal)
	assert.NotEmpty(t, view.ID)
}

func TestCheckoutOrchestrator_Begin_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.orchestrator.Begin(context.Background(), f.identity)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCheckoutOrchestrator_Begin_SnapshotsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	// A cart edit after Begin does not leak into the open session.
	_, err = f.carts.AddItem(ctx, f.identity, addInput("v-9", 100_00, 5))
	require.NoError(t, err)

	view, err = f.orchestrator.Get(ctx, f.identity, view.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, int64(15000_00), view.Totals.Subtotal)
}

func TestCheckoutOrchestrator_SelectAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	view, err = f.orchestrator.SelectAddress(ctx, f.identity, view.ID, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAddressSelected, view.Phase)
	require.NotNil(t, view.Address)
	assert.Equal(t, "addr-1", view.Address.ID)
	// Options come back cheapest first.
	require.Len(t, view.ShippingOptions, 2)
	assert.Equal(t, "standard", view.ShippingOptions[0].MethodID)
}

func TestCheckoutOrchestrator_SelectAddress_UnknownAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	_, err = f.orchestrator.SelectAddress(ctx, f.identity, view.ID, "addr-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckoutOrchestrator_SelectAddress_ResetsPricing(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)
	_, err := f.orchestrator.SetPoints(ctx, f.identity, view.ID, 100)
	require.NoError(t, err)

	// Switching address invalidates the chosen method and the discount.
	view, err = f.orchestrator.SelectAddress(ctx, f.identity, view.ID, "addr-2")
	require.NoError(t, err)
	assert.Nil(t, view.Shipping)
	assert.Zero(t, view.PointsRequested)
	assert.Zero(t, view.Discount)
	assert.Nil(t, view.PointsLimit)
}

func TestCheckoutOrchestrator_SelectShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)

	view := f.toReady(t)
	require.NotNil(t, view.Shipping)
	assert.Equal(t, "standard", view.Shipping.MethodID)
	assert.Equal(t, int64(250000), view.Shipping.Cost)
	require.NotNil(t, view.PointsLimit)
	assert.True(t, view.PointsLimit.Eligible)
	assert.Equal(t, int64(500), view.PointsLimit.AvailableBalance)
	// Subtotal 1500000 + shipping 250000, no discount yet.
	assert.Equal(t, int64(1750000), view.Total)
}

func TestCheckoutOrchestrator_SelectShipping_UnknownMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)
	view, err = f.orchestrator.SelectAddress(ctx, f.identity, view.ID, "addr-1")
	require.NoError(t, err)

	_, err = f.orchestrator.SelectShipping(ctx, f.identity, view.ID, "drone")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckoutOrchestrator_SelectShipping_BeforeAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	_, err = f.orchestrator.SelectShipping(ctx, f.identity, view.ID, "standard")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCheckoutOrchestrator_SetPoints_ClampsToLimit(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)

	// The limit allows 300 points (balance 500, needed 300); asking for
	// 1000 silently yields the maximum, worth the full max discount.
	view, err := f.orchestrator.SetPoints(ctx, f.identity, view.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseReadyToSubmit, view.Phase)
	assert.Equal(t, int64(300), view.PointsRequested)
	assert.Equal(t, int64(300000), view.Discount)
	assert.Equal(t, int64(1450000), view.Total)

	// Asking again with the clamped value changes nothing.
	again, err := f.orchestrator.SetPoints(ctx, f.identity, view.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, view.PointsRequested, again.PointsRequested)
	assert.Equal(t, view.Discount, again.Discount)
}

func TestCheckoutOrchestrator_SetPoints_NegativeRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)

	view := f.toReady(t)
	_, err := f.orchestrator.SetPoints(context.Background(), f.identity, view.ID, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCheckoutOrchestrator_Submit_HappyPath(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)
	view, err := f.orchestrator.SetPoints(ctx, f.identity, view.ID, 300)
	require.NoError(t, err)

	view, err = f.orchestrator.Submit(ctx, f.identity, view.ID, "sinpe")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDone, view.Phase)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, "ord-789", view.Outcome.OrderID)
	assert.Equal(t, int64(1500000), view.Outcome.Subtotal)
	assert.Equal(t, int64(250000), view.Outcome.ShippingCost)
	assert.Equal(t, int64(300000), view.Outcome.DiscountApplied)
	assert.Equal(t, int64(1450000), view.Outcome.Total)
	assert.Equal(t, int64(42), view.Outcome.PointsEarned)
	assert.True(t, view.Outcome.PointsPhaseSucceeded)
	assert.Empty(t, view.Outcome.Warning)

	// Both commit calls fired exactly once. The order request carries no
	// points; redemption rides only on the confirmation.
	assert.Equal(t, int32(1), f.platform.orderCalls.Load())
	assert.Equal(t, int32(1), f.platform.confirmCalls.Load())
	order := f.platform.lastOrderBody.Load()
	require.NotNil(t, order)
	assert.Equal(t, "addr-1", order.AddressID)
	assert.Equal(t, "standard", order.ShippingMethod)
	assert.Equal(t, "sinpe", order.PaymentMethod)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "v-1", order.Items[0].VariantID)
	confirm := f.platform.lastConfirmReq.Load()
	require.NotNil(t, confirm)
	assert.Equal(t, "ord-789", confirm.OrderID)
	assert.Equal(t, int64(1500000), confirm.Subtotal)
	assert.Equal(t, int64(250000), confirm.ShippingCost)
	assert.Equal(t, int64(300), confirm.PointsToUse)

	// The cart empties once the order owns its items.
	cart, err := f.carts.GetCart(ctx, f.identity)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutOrchestrator_Submit_ZeroPointsStillConfirms(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)

	view := f.toReady(t)
	_, err := f.orchestrator.Submit(context.Background(), f.identity, view.ID, "")
	require.NoError(t, err)

	confirm := f.platform.lastConfirmReq.Load()
	require.NotNil(t, confirm)
	assert.Zero(t, confirm.PointsToUse)
	assert.Equal(t, int32(1), f.platform.confirmCalls.Load())

	// An omitted payment method falls back to the default.
	order := f.platform.lastOrderBody.Load()
	require.NotNil(t, order)
	assert.Equal(t, "card", order.PaymentMethod)
}

func TestCheckoutOrchestrator_Submit_OrderRejected_ThenRetry(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)

	f.platform.orderStatus.Store(http.StatusUnprocessableEntity)
	_, err := f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOrderRejected)
	// The server's own explanation survives to the caller.
	assert.Contains(t, err.Error(), "item out of stock")

	view, err = f.orchestrator.Get(ctx, f.identity, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFailed, view.Phase)
	assert.NotEmpty(t, view.FailureMessage)
	// No order, so no points call either.
	assert.Zero(t, f.platform.confirmCalls.Load())

	// The cart survives a failed submission.
	cart, err := f.carts.GetCart(ctx, f.identity)
	require.NoError(t, err)
	assert.NotEmpty(t, cart.Items)

	// An explicit retry from failed goes straight back to submitting.
	f.platform.orderStatus.Store(0)
	view, err = f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDone, view.Phase)
	assert.Empty(t, view.FailureMessage)
}

func TestCheckoutOrchestrator_Submit_PointsFailureStillCompletes(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)
	view, err := f.orchestrator.SetPoints(ctx, f.identity, view.ID, 100)
	require.NoError(t, err)

	f.platform.confirmStatus.Store(http.StatusInternalServerError)
	view, err = f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	require.NoError(t, err)

	// The order exists, so the checkout is done, not failed, and the
	// totals fall back to the local estimate.
	assert.Equal(t, domain.PhaseDone, view.Phase)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, "ord-789", view.Outcome.OrderID)
	assert.False(t, view.Outcome.PointsPhaseSucceeded)
	assert.NotEmpty(t, view.Outcome.Warning)
	assert.Equal(t, int64(1650000), view.Outcome.Total)

	// The cart still empties: the order owns the items regardless of the
	// points outcome.
	cart, err := f.carts.GetCart(ctx, f.identity)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutOrchestrator_Submit_RequiresShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	_, err = f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCheckoutOrchestrator_Submit_DoubleSubmitRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view := f.toReady(t)
	view, err := f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDone, view.Phase)

	// Done is terminal; a second submit cannot create a second order.
	_, err = f.orchestrator.Submit(ctx, f.identity, view.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, int32(1), f.platform.orderCalls.Load())
}

func TestCheckoutOrchestrator_ConcurrentSessionsQuoteIndependently(t *testing.T) {
	stalled := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/addresses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"addresses":[
			{"id":"addr-1","province":"San José","canton":"Escazú","district":"San Rafael","detail":"Casa 12"},
			{"id":"addr-2","province":"Guanacaste","canton":"Liberia","district":"Liberia","detail":"Barrio Condega"}
		]}`))
	})
	mux.HandleFunc("/api/v1/shipping/quote", func(w http.ResponseWriter, r *http.Request) {
		addr := r.URL.Query().Get("address_id")
		if addr == "addr-2" {
			close(stalled)
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"options":[{"method_id":"%s-standard","name":"Estándar","cost":250000}]}`, addr)
	})
	mux.HandleFunc("/api/v1/loyalty/limit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"eligible":false,"reason":"order below minimum"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := redisrepo.NewCollectionRepository(client, time.Hour)

	logger := testLogger()
	producer := testProducer()
	readCfg := httpclient.DefaultConfig()
	readCfg.MaxRetries = 0
	readClient := httpclient.New(readCfg)

	carts := NewCartService(NewCartCollection(repo), producer, logger)
	orchestrator := NewCheckoutOrchestrator(
		carts,
		NewAddressService(readClient, server.URL, logger),
		NewShippingQuoteResolver(readClient, server.URL, logger),
		NewLoyaltyLimitCalculator(readClient, server.URL, logger),
		producer,
		logger,
		httpclient.New(httpclient.CommitConfig()),
		server.URL,
		CommitTimeouts{},
	)

	ctx := context.Background()
	alice := domain.User("alice")
	bob := domain.User("bob")

	_, err := carts.AddItem(ctx, alice, addInput("v-1", 7500_00, 1))
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, bob, addInput("v-2", 5000_00, 1))
	require.NoError(t, err)

	aliceBegin, err := orchestrator.Begin(ctx, alice)
	require.NoError(t, err)
	bobBegin, err := orchestrator.Begin(ctx, bob)
	require.NoError(t, err)

	// Alice's quote for addr-2 stalls upstream while Bob quotes his own
	// address through the shared resolver.
	aliceDone := make(chan error, 1)
	go func() {
		_, err := orchestrator.SelectAddress(ctx, alice, aliceBegin.ID, "addr-2")
		aliceDone <- err
	}()

	<-stalled
	bobView, err := orchestrator.SelectAddress(ctx, bob, bobBegin.ID, "addr-1")
	require.NoError(t, err)
	require.Len(t, bobView.ShippingOptions, 1)
	assert.Equal(t, "addr-1-standard", bobView.ShippingOptions[0].MethodID)

	close(release)
	require.NoError(t, <-aliceDone)

	// Bob's dispatch did not void Alice's in-flight quote: her session holds
	// the options priced for her own destination, never his.
	aliceView, err := orchestrator.Get(ctx, alice, aliceBegin.ID)
	require.NoError(t, err)
	require.NotNil(t, aliceView.Address)
	assert.Equal(t, "addr-2", aliceView.Address.ID)
	require.Len(t, aliceView.ShippingOptions, 1)
	assert.Equal(t, "addr-2-standard", aliceView.ShippingOptions[0].MethodID)
}

func TestCheckoutOrchestrator_OwnershipIsolation(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	// Another identity sees the session as missing, not forbidden.
	_, err = f.orchestrator.Get(ctx, domain.User("intruder"), view.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckoutOrchestrator_Expiry(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	f.orchestrator.now = func() time.Time { return time.Now().Add(checkoutExpiryDuration + time.Minute) }

	_, err = f.orchestrator.Get(ctx, f.identity, view.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckoutOrchestrator_Sweep(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	f.orchestrator.now = func() time.Time { return time.Now().Add(checkoutExpiryDuration + time.Minute) }
	f.orchestrator.sweep()

	f.orchestrator.mu.Lock()
	_, ok := f.orchestrator.sessions[view.ID]
	f.orchestrator.mu.Unlock()
	assert.False(t, ok)
}

func TestCheckoutOrchestrator_Abandon(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t)
	ctx := context.Background()

	view, err := f.orchestrator.Begin(ctx, f.identity)
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.Abandon(ctx, f.identity, view.ID))

	_, err = f.orchestrator.Get(ctx, f.identity, view.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The cart is untouched by abandonment.
	cart, err := f.carts.GetCart(ctx, f.identity)
	require.NoError(t, err)
	assert.NotEmpty(t, cart.Items)
}
