//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v
//
// Scenarios:
//   - full sale cycle: commit → stock → finalize → cancel restores stock
//   - supplier sync: transaction applied idempotently, units created once
//   - integrity: corrupted counter detected and repaired to convergence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tipatpati/golden-phone-management-sub010/internal/config"
	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/infra"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/router"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
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
	db     *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("inventory_test"),
		tcPostgres.WithUsername("inventory"),
		tcPostgres.WithPassword("inventory"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
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
		Port:               8000,
		Env:                "test",
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
		OrphanRepairAction: "mark",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	r := router.New(cfg, db, rdb, notify.NewRedisChannel(rdb))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, db: db}
}

func (env *testEnv) seedSerializedProduct(t *testing.T, serials ...string) *model.Product {
	t.Helper()
	p := &model.Product{
		Brand:     "Apple",
		Model:     "iPhone 13",
		HasSerial: true,
		Stock:     len(serials),
		BasePrice: decimal.RequireFromString("599.00"),
		Active:    true,
	}
	require.NoError(t, env.db.Create(p).Error)
	for _, sn := range serials {
		require.NoError(t, env.db.Create(&model.ProductUnit{
			ProductID: p.ID,
			Serial:    sn,
			Status:    model.UnitStatusAvailable,
			SellPrice: p.BasePrice,
		}).Error)
	}
	return p
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_FullSaleCycle(t *testing.T) {
	env := setupTestEnv(t)
	p := env.seedSerializedProduct(t, "SN-100", "SN-101")

	// 1. Commit a sale claiming SN-100.
	resp := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"payment_method": "cash",
		"vat_included":   true,
		"items": []map[string]any{
			{"product_id": p.ID.String(), "serial": "SN-100", "quantity": 1},
		},
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale dto.SaleResponse
	decodeJSON(t, resp, &sale)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, model.SaleStatusOpen, sale.Status)
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("599.00")))

	// 2. Effective stock dropped to the one remaining unit.
	resp = do(t, env.server, "GET", "/v1/stock?ids="+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stock dto.EffectiveStockResponse
	decodeJSON(t, resp, &stock)
	require.Len(t, stock.Data, 1)
	assert.Equal(t, 1, stock.Data[0].Stock)

	// 3. The same serial cannot be claimed twice.
	resp = do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"payment_method": "cash",
		"vat_included":   true,
		"items": []map[string]any{
			{"product_id": p.ID.String(), "serial": "SN-100", "quantity": 1},
		},
	}))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// 4. Finalize, then verify the sale is frozen.
	resp = do(t, env.server, "POST", fmt.Sprintf("/v1/sales/%s/finalize", sale.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	newPrice := "550.00"
	resp = do(t, env.server, "PATCH", fmt.Sprintf("/v1/sales/%s/items/%s", sale.ID, sale.Items[0].ID),
		jsonBody(t, map[string]any{"unit_price": newPrice}))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 5. Post-sale state must be clean.
	resp = do(t, env.server, "POST", "/v1/integrity/check", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report dto.IntegrityReport
	decodeJSON(t, resp, &report)
	assert.True(t, report.Clean(), "findings: %+v", report)
}

func TestE2E_CancelRestoresStock(t *testing.T) {
	env := setupTestEnv(t)
	p := env.seedSerializedProduct(t, "SN-200")

	resp := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"payment_method": "cash",
		"vat_included":   true,
		"items": []map[string]any{
			{"product_id": p.ID.String(), "serial": "SN-200", "quantity": 1},
		},
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale dto.SaleResponse
	decodeJSON(t, resp, &sale)

	resp = do(t, env.server, "DELETE", "/v1/sales/"+sale.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Unit released and counter restored.
	var unit model.ProductUnit
	require.NoError(t, env.db.Where("serial = ?", "SN-200").First(&unit).Error)
	assert.Equal(t, model.UnitStatusAvailable, unit.Status)

	var product model.Product
	require.NoError(t, env.db.First(&product, "id = ?", p.ID).Error)
	assert.Equal(t, 1, product.Stock)

	resp = do(t, env.server, "POST", "/v1/integrity/check", nil)
	var report dto.IntegrityReport
	decodeJSON(t, resp, &report)
	assert.True(t, report.Clean(), "findings: %+v", report)
}

func TestE2E_SupplierSyncIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	p := env.seedSerializedProduct(t)

	txn := &model.SupplierTransaction{
		SupplierID: uuid.New(),
		Type:       model.TransactionTypePurchase,
		Status:     model.TransactionStatusCompleted,
		Items: []model.SupplierTransactionItem{
			{
				ProductID: p.ID,
				Quantity:  2,
				UnitCost:  decimal.RequireFromString("100.00"),
				UnitEntries: model.UnitEntryList{
					{Serial: "SYNC-1"},
					{Serial: "SYNC-2"},
				},
			},
		},
	}
	require.NoError(t, env.db.Create(txn).Error)

	resp := do(t, env.server, "POST", "/v1/sync/transactions/"+txn.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result dto.SyncResult
	decodeJSON(t, resp, &result)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.StockDelta)
	assert.Equal(t, 2, result.CreatedUnits)

	// Redelivery: nothing doubles.
	resp = do(t, env.server, "POST", "/v1/sync/transactions/"+txn.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &result)
	require.True(t, result.Success)
	assert.Zero(t, result.StockDelta)
	assert.Zero(t, result.CreatedUnits)

	var count int64
	require.NoError(t, env.db.Model(&model.ProductUnit{}).Where("product_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var product model.Product
	require.NoError(t, env.db.First(&product, "id = ?", p.ID).Error)
	assert.Equal(t, 2, product.Stock)
}

func TestE2E_IntegrityRepairConverges(t *testing.T) {
	env := setupTestEnv(t)
	p := env.seedSerializedProduct(t, "SN-300", "SN-301")

	// Corrupt the counter behind the engine's back.
	require.NoError(t, env.db.Model(&model.Product{}).
		Where("id = ?", p.ID).Update("stock", 9).Error)

	resp := do(t, env.server, "POST", "/v1/integrity/check", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report dto.IntegrityReport
	decodeJSON(t, resp, &report)
	require.Len(t, report.StockMismatches, 1)
	assert.Equal(t, 9, report.StockMismatches[0].Recorded)
	assert.Equal(t, 2, report.StockMismatches[0].Actual)

	resp = do(t, env.server, "POST", "/v1/integrity/repair", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result dto.RepairResult
	decodeJSON(t, resp, &result)
	assert.Equal(t, 1, result.Repaired)
	assert.Zero(t, result.Remaining)
	assert.Empty(t, result.Errors)

	var product model.Product
	require.NoError(t, env.db.First(&product, "id = ?", p.ID).Error)
	assert.Equal(t, 2, product.Stock)

	// The repair itself left an audit movement.
	var count int64
	require.NoError(t, env.db.Model(&model.StockMovement{}).
		Where("product_id = ? AND type = ?", p.ID, model.MovementRepair).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
