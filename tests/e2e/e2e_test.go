//go:build integration

package e2e

// End-to-end integration tests against real Postgres + Redis via
// testcontainers. Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - cart lifecycle through checkout, including stock decrement
//   - sale recording, async association rebuild and product recommendations
//   - per-user materialized recommendations (generate, list, mark viewed)
//   - conditional stock decrement rejecting oversell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopcore/internal/config"
	"shopcore/internal/infra"
	"shopcore/internal/repository"
	"shopcore/internal/router"
	"shopcore/internal/service"
	"shopcore/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("shopcore_test"),
		tcPostgres.WithUsername("shopcore"),
		tcPostgres.WithPassword("shopcore"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "test",
		WorkerPoolSize:      1,
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		MinSupport:          0.01,
		MinConfidence:       0.1,
		MaxRecommendations:  4,
		RecomputeEverySales: 1000, // keep the counter trigger quiet in tests
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	dispatcher := worker.NewDispatcher(rdb)
	trigger := worker.NewRecomputeTrigger(rdb, dispatcher, cfg.RecomputeEverySales)

	// Worker pool processing rebuild jobs, like in cmd/server
	associationSvc := service.NewAssociationService(
		repository.NewRecommendationRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
	)
	workerCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	worker.StartWorkerPool(workerCtx, rdb, dispatcher, &worker.Handlers{
		Associations: worker.NewAssociationWorker(associationSvc),
		Email:        worker.NewEmailWorker(infra.NewMailer(cfg)),
	}, cfg.WorkerPoolSize)

	srv := httptest.NewServer(router.New(cfg, db, rdb, dispatcher, trigger))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv}
}

func (e *testEnv) seedUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/users", jsonBody(t, map[string]any{
		"name":  name,
		"email": fmt.Sprintf("%s@e2e.test", uuid.NewString()),
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var user struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &user)
	id, err := uuid.Parse(user.ID)
	require.NoError(t, err)
	return id
}

func (e *testEnv) createCategory(t *testing.T, name string) string {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/categories", jsonBody(t, map[string]any{"name": name}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cat struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &cat)
	return cat.ID
}

func (e *testEnv) createProduct(t *testing.T, name, categoryID string, price float64, stock int) string {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/products", jsonBody(t, map[string]any{
		"name":        name,
		"category_id": categoryID,
		"price":       price,
		"stock":       stock,
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

func (e *testEnv) productStock(t *testing.T, productID string) int {
	t.Helper()
	resp := do(t, e.server, "GET", "/v1/products/"+productID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prod struct {
		Stock int `json:"stock"`
	}
	decodeJSON(t, resp, &prod)
	return prod.Stock
}

func (e *testEnv) recordSale(t *testing.T, userID uuid.UUID, productIDs ...string) {
	t.Helper()
	items := make([]map[string]any, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, map[string]any{"product_id": id, "quantity": 1})
	}
	resp := do(t, e.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"user_id":        userID.String(),
		"payment_method": "cash",
		"items":          items,
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_CartCheckoutFlow(t *testing.T) {
	env := setupTestEnv(t)
	userID := env.seedUser(t, "Cart Shopper")
	catID := env.createCategory(t, "Beverages")
	sodaID := env.createProduct(t, "Soda 500ml", catID, 2.50, 10)
	waterID := env.createProduct(t, "Still Water", catID, 1.00, 5)

	// Adding the first item lazily opens the active cart.
	addResp := do(t, env.server, "POST", fmt.Sprintf("/v1/users/%s/cart/items", userID),
		jsonBody(t, map[string]any{"product_id": sodaID, "quantity": 3}))
	require.Equal(t, http.StatusOK, addResp.StatusCode)
	var cart struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Subtotal string `json:"subtotal"`
	}
	decodeJSON(t, addResp, &cart)
	assert.Equal(t, "active", cart.Status)
	assert.Equal(t, "7.5", cart.Subtotal)

	addResp = do(t, env.server, "POST", fmt.Sprintf("/v1/users/%s/cart/items", userID),
		jsonBody(t, map[string]any{"product_id": waterID, "quantity": 2}))
	require.Equal(t, http.StatusOK, addResp.StatusCode)
	decodeJSON(t, addResp, &cart)
	assert.Equal(t, "9.5", cart.Subtotal)

	checkoutResp := do(t, env.server, "POST", "/v1/carts/"+cart.ID+"/checkout",
		jsonBody(t, map[string]any{"payment_method": "card"}))
	require.Equal(t, http.StatusCreated, checkoutResp.StatusCode)
	var checkout struct {
		SaleID        string `json:"sale_id"`
		InvoiceNumber string `json:"invoice_number"`
		Total         string `json:"total"`
	}
	decodeJSON(t, checkoutResp, &checkout)
	assert.Equal(t, "FACT-000001", checkout.InvoiceNumber)
	assert.Equal(t, "9.5", checkout.Total)

	assert.Equal(t, 7, env.productStock(t, sodaID))
	assert.Equal(t, 3, env.productStock(t, waterID))

	// The cart is processed and cannot be checked out again.
	again := do(t, env.server, "POST", "/v1/carts/"+cart.ID+"/checkout",
		jsonBody(t, map[string]any{"payment_method": "card"}))
	assert.Equal(t, http.StatusConflict, again.StatusCode)
	again.Body.Close()

	saleResp := do(t, env.server, "GET", "/v1/sales/"+checkout.SaleID, nil)
	require.Equal(t, http.StatusOK, saleResp.StatusCode)
	var sale struct {
		Status string `json:"status"`
	}
	decodeJSON(t, saleResp, &sale)
	assert.Equal(t, "completed", sale.Status)
}

func TestE2E_AssociationRebuildAndRecommendations(t *testing.T) {
	env := setupTestEnv(t)
	userID := env.seedUser(t, "Regular Buyer")
	catID := env.createCategory(t, "Breakfast")
	coffeeID := env.createProduct(t, "Ground Coffee", catID, 6.00, 50)
	filtersID := env.createProduct(t, "Paper Filters", catID, 2.00, 50)
	mugID := env.createProduct(t, "Mug", catID, 4.00, 50)

	// coffee+filters co-occur twice, coffee+mug only once — the cache keeps
	// pairs bought together at least twice.
	env.recordSale(t, userID, coffeeID, filtersID)
	env.recordSale(t, userID, coffeeID, filtersID)
	env.recordSale(t, userID, coffeeID, mugID)

	rebuildResp := do(t, env.server, "POST", "/v1/associations/rebuild", nil)
	require.Equal(t, http.StatusAccepted, rebuildResp.StatusCode)
	rebuildResp.Body.Close()

	// The rebuild runs on the worker pool — poll until the cache fills.
	var assocs struct {
		Data []struct {
			AssociatedProductID string  `json:"associated_product_id"`
			Strength            float64 `json:"strength"`
		} `json:"data"`
	}
	require.Eventually(t, func() bool {
		resp := do(t, env.server, "GET", "/v1/products/"+coffeeID+"/associations", nil)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}
		decodeJSON(t, resp, &assocs)
		return len(assocs.Data) > 0
	}, 15*time.Second, 250*time.Millisecond, "association cache never filled")

	require.Len(t, assocs.Data, 1, "single-co-occurrence pairs stay out of the cache")
	assert.Equal(t, filtersID, assocs.Data[0].AssociatedProductID)
	assert.Equal(t, 1.0, assocs.Data[0].Strength)

	recResp := do(t, env.server, "GET", "/v1/products/"+coffeeID+"/recommendations?limit=2", nil)
	require.Equal(t, http.StatusOK, recResp.StatusCode)
	var recs struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	decodeJSON(t, recResp, &recs)
	require.NotEmpty(t, recs.Data)
	assert.Equal(t, filtersID, recs.Data[0].ID, "strongest co-purchase ranks first")
}

func TestE2E_UserRecommendationLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	userID := env.seedUser(t, "Returning Customer")
	catID := env.createCategory(t, "Kitchen")
	coffeeID := env.createProduct(t, "Ground Coffee", catID, 6.00, 20)
	grinderID := env.createProduct(t, "Burr Grinder", catID, 40.00, 20)

	assocResp := do(t, env.server, "POST", "/v1/associations", jsonBody(t, map[string]any{
		"product_id":            coffeeID,
		"associated_product_id": grinderID,
		"strength":              0.9,
	}))
	require.Equal(t, http.StatusCreated, assocResp.StatusCode)
	assocResp.Body.Close()

	orderResp := do(t, env.server, "POST", "/v1/orders", jsonBody(t, map[string]any{
		"user_id": userID.String(),
		"items":   []map[string]any{{"product_id": coffeeID, "quantity": 1}},
	}))
	require.Equal(t, http.StatusCreated, orderResp.StatusCode)
	orderResp.Body.Close()

	genResp := do(t, env.server, "POST", fmt.Sprintf("/v1/users/%s/recommendations/generate", userID), nil)
	require.Equal(t, http.StatusOK, genResp.StatusCode)
	var gen struct {
		Generated int `json:"generated"`
	}
	decodeJSON(t, genResp, &gen)
	assert.Equal(t, 1, gen.Generated)

	listResp := do(t, env.server, "GET", fmt.Sprintf("/v1/users/%s/recommendations", userID), nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list struct {
		Data []struct {
			ID        string  `json:"id"`
			ProductID string  `json:"product_id"`
			Score     float64 `json:"score"`
		} `json:"data"`
	}
	decodeJSON(t, listResp, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, grinderID, list.Data[0].ProductID)
	assert.Equal(t, 0.9, list.Data[0].Score)

	viewedResp := do(t, env.server, "PATCH", "/v1/recommendations/"+list.Data[0].ID+"/viewed", nil)
	assert.Equal(t, http.StatusNoContent, viewedResp.StatusCode)
	viewedResp.Body.Close()

	// Viewed records drop out of the default listing.
	listResp = do(t, env.server, "GET", fmt.Sprintf("/v1/users/%s/recommendations", userID), nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	decodeJSON(t, listResp, &list)
	assert.Empty(t, list.Data)
}

func TestE2E_OversellRejected(t *testing.T) {
	env := setupTestEnv(t)
	userID := env.seedUser(t, "Eager Buyer")
	catID := env.createCategory(t, "Limited")
	prodID := env.createProduct(t, "Last Batch", catID, 9.99, 2)

	orderResp := do(t, env.server, "POST", "/v1/orders", jsonBody(t, map[string]any{
		"user_id": userID.String(),
		"items":   []map[string]any{{"product_id": prodID, "quantity": 3}},
	}))
	assert.Equal(t, http.StatusConflict, orderResp.StatusCode)
	orderResp.Body.Close()

	// The rejected order must not touch stock.
	assert.Equal(t, 2, env.productStock(t, prodID))
}
