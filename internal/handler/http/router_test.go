package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/event"
	redisrepo "github.com/JoseMS22/JyA-Innersport-sub000/internal/repository/redis"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/health"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httpclient"
	pkgkafka "github.com/JoseMS22/JyA-Innersport-sub000/pkg/kafka"
)

// newUpstream fakes the commerce platform endpoints the storefront calls.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/addresses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"addresses":[{"id":"addr-1","province":"Alajuela","canton":"Grecia","district":"Grecia","detail":"Casa esquinera","is_default":true}]}`))
	})
	mux.HandleFunc("/api/v1/shipping/quote", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"options":[{"method_id":"standard","name":"Estándar","cost":250000,"eta_min_days":2,"eta_max_days":4}]}`))
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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id":"ord-1","subtotal":1500000,"shipping_cost":250000}`))
	})
	mux.HandleFunc("/api/v1/loyalty/confirm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := redisrepo.NewCollectionRepository(client, time.Hour)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	producer := event.NewProducer(pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger), logger)
	upstream := newUpstream(t)

	readCfg := httpclient.DefaultConfig()
	readCfg.MaxRetries = 0
	readClient := httpclient.New(readCfg)
	commitClient := httpclient.New(httpclient.CommitConfig())

	cartService := service.NewCartService(service.NewCartCollection(repo), producer, logger)
	favoritesService := service.NewFavoritesService(service.NewFavoritesCollection(repo), logger)
	addressService := service.NewAddressService(readClient, upstream.URL, logger)
	orchestrator := service.NewCheckoutOrchestrator(
		cartService,
		addressService,
		service.NewShippingQuoteResolver(readClient, upstream.URL, logger),
		service.NewLoyaltyLimitCalculator(readClient, upstream.URL, logger),
		producer,
		logger,
		commitClient,
		upstream.URL,
		service.CommitTimeouts{},
	)

	return NewRouter(cartService, favoritesService, addressService, orchestrator, health.NewHandler(), logger)
}

func doJSON(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartHandler_GetCart_Empty(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, float64(0), data["item_count"])
	assert.Equal(t, "CRC", data["currency"])
}

func TestCartHandler_AddItem(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", "", AddItemRequest{
		VariantID: "v-1",
		ProductID: "prod-1",
		Name:      "Pantaloneta",
		UnitPrice: 11300_00,
		Quantity:  1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeData(t, rec)
	totals := data["totals"].(map[string]any)
	assert.Equal(t, float64(1130000), totals["subtotal"])
	assert.Equal(t, float64(1000000), totals["tax_exclusive_subtotal"])
	assert.Equal(t, float64(130000), totals["tax_portion"])
}

func TestCartHandler_AddItem_InvalidBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_AddItem_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", "", AddItemRequest{
		VariantID: "v-1",
		// product_id, name, unit_price missing
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_IdentityScoping(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", "user-001", AddItemRequest{
		VariantID: "v-1", ProductID: "p-1", Name: "Botella", UnitPrice: 4500_00, Quantity: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The guest sees an empty cart; the member sees one line.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, float64(0), decodeData(t, rec)["item_count"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", "user-001", nil)
	assert.Equal(t, float64(1), decodeData(t, rec)["item_count"])
}

func TestFavoritesHandler_SaveListRemove(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/favorites", "", SaveFavoriteRequest{
		VariantID: "v-1", ProductID: "p-1", Name: "Guantes",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/favorites", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listEnvelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listEnvelope))
	assert.Len(t, listEnvelope.Data, 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/favorites/v-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddressHandler_List_GuestUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/addresses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutFlow_EndToEnd(t *testing.T) {
	router := newTestRouter(t)
	user := "user-001"

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", user, AddItemRequest{
		VariantID: "v-1", ProductID: "p-1", Name: "Camiseta", UnitPrice: 7500_00, Quantity: 2, WeightGrams: 300,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout", user, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkoutID := decodeData(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/address", user, SelectAddressRequest{AddressID: "addr-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "address_selected", decodeData(t, rec)["phase"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/shipping", user, SelectShippingRequest{MethodID: "standard"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ready_to_submit", decodeData(t, rec)["phase"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/points", user, SetPointsRequest{Points: 1000})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, float64(300), data["points_requested"])
	assert.Equal(t, float64(300000), data["discount"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout/"+checkoutID+"/submit", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data = decodeData(t, rec)
	assert.Equal(t, "done", data["phase"])
	outcome := data["outcome"].(map[string]any)
	assert.Equal(t, "ord-1", outcome["order_id"])
	assert.Equal(t, true, outcome["points_phase_succeeded"])

	// The cart is empty after the order.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", user, nil)
	assert.Equal(t, float64(0), decodeData(t, rec)["item_count"])
}

func TestCheckoutHandler_Get_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout/nope", "user-001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutHandler_Begin_EmptyCart(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", "user-001", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
