package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/backend/internal/application/syncengine"
	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
	"github.com/salespipe/backend/internal/infrastructure/runlock"
	"github.com/salespipe/backend/internal/interfaces/http/middleware"
	"github.com/salespipe/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAdapter struct {
	source  warehouse.Channel
	records []*warehouse.LineItemRecord
	err     error
	block   chan struct{}
}

func (s *stubAdapter) Channel() warehouse.Channel { return s.source }

func (s *stubAdapter) FetchLineItems(ctx context.Context, _ calendar.Window) ([]*warehouse.LineItemRecord, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func saleRecord(orderID, lineID string) *warehouse.LineItemRecord {
	rec := &warehouse.LineItemRecord{
		Channel:   warehouse.ChannelShopify,
		OrderID:   orderID,
		LineID:    lineID,
		SKU:       "WIDGET-1",
		Qty:       1,
		ItemGross: decimal.RequireFromString("30.00"),
		Currency:  "USD",
		Region:    "US",
	}
	rec.SetDate(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	return rec
}

type testServer struct {
	engine *gin.Engine
	sink   *persistence.MemoryWarehouseStore
	lock   runlock.RunLock
}

func newTestServer(t *testing.T, token string, adapters ...channel.Adapter) *testServer {
	t.Helper()
	sink := persistence.NewMemoryWarehouseStore()
	registry := channel.NewRegistry(adapters...)

	now := func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	sales := syncengine.NewSalesSyncService(sink, registry, syncengine.SyncOptions{Now: now})
	profitability := syncengine.NewProfitabilityService(sink)
	inventory := syncengine.NewInventoryService(sink, nil, syncengine.InventoryOptions{Now: now})
	costs := syncengine.NewCostService(sink)
	lock := runlock.NewMemoryRunLock(time.Minute)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.SyncTokenAuth(token))

	r := router.NewRouter(engine)
	r.Register(NewSystemHandler(nil))
	r.Register(NewSyncHandler(sales, profitability, inventory, costs, lock, time.Minute))
	r.Setup()

	return &testServer{engine: engine, sink: sink, lock: lock}
}

func (s *testServer) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	w := server.do(http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestSyncTokenAuth(t *testing.T) {
	server := newTestServer(t, "s3cret",
		&stubAdapter{source: warehouse.ChannelShopify})

	t.Run("missing token", func(t *testing.T) {
		w := server.do(http.MethodGet, "/sync", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := server.do(http.MethodGet, "/sync", "", map[string]string{"X-Sync-Token": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("header token", func(t *testing.T) {
		w := server.do(http.MethodGet, "/sync", "", map[string]string{"X-Sync-Token": "s3cret"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query token", func(t *testing.T) {
		w := server.do(http.MethodGet, "/sync?token=s3cret", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("health also guarded", func(t *testing.T) {
		w := server.do(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSyncEndpoint(t *testing.T) {
	server := newTestServer(t, "",
		&stubAdapter{source: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
			saleRecord("5001", "9001"),
			saleRecord("5001", "9002"),
		}})

	w := server.do(http.MethodGet, "/sync?days=7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["appended"])
	assert.Equal(t, float64(0), data["duplicates"])

	// Second run appends nothing
	w = server.do(http.MethodGet, "/sync?days=7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(0), data["appended"])
	assert.Equal(t, float64(2), data["duplicates"])
}

func TestSyncEndpointBadWindow(t *testing.T) {
	server := newTestServer(t, "", &stubAdapter{source: warehouse.ChannelShopify})

	w := server.do(http.MethodGet, "/sync?start=junk&end=2024-06-15", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = server.do(http.MethodGet, "/sync?channels=ebay", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncEndpointUpstreamFailure(t *testing.T) {
	server := newTestServer(t, "",
		&stubAdapter{source: warehouse.ChannelShopify, err: channel.ErrRequestFailed})

	w := server.do(http.MethodGet, "/sync", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["ok"])
}

func TestSyncEndpointConflict(t *testing.T) {
	block := make(chan struct{})
	server := newTestServer(t, "",
		&stubAdapter{source: warehouse.ChannelShopify, block: block})

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- server.do(http.MethodGet, "/sync", "", nil)
	}()

	// Wait for the first request to take the lock; release immediately if
	// the probe won it instead
	require.Eventually(t, func() bool {
		release, err := server.lock.Acquire(context.Background())
		if err == nil {
			release()
			return false
		}
		return true
	}, time.Second, 5*time.Millisecond)

	w := server.do(http.MethodGet, "/sync", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(block)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestCostsUploadAndProfitability(t *testing.T) {
	server := newTestServer(t, "",
		&stubAdapter{source: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
			saleRecord("5001", "9001"),
		}})

	w := server.do(http.MethodGet, "/sync", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(http.MethodPost, "/costs",
		`{"entries":[{"sku":"WIDGET-1","unit_cost":"12.00","note":"supplier A"}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["updated"])

	w = server.do(http.MethodGet, "/sync/profitability", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["rows"])
	assert.Equal(t, float64(0), data["unknown_cost_skus"])

	rows, err := server.sink.ReadRows(context.Background(), warehouse.ModelProfitabilityTable)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	idx := warehouse.ModelProfitabilityTable.ColumnIndex
	assert.Equal(t, "18.00", rows[0][idx("gross_profit")])
}

func TestCostsUploadValidation(t *testing.T) {
	server := newTestServer(t, "")

	w := server.do(http.MethodPost, "/costs", `{"entries":[{"sku":"","unit_cost":"1"}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = server.do(http.MethodPost, "/costs", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := server.do(http.MethodGet, "/sync/inventory", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(0), data["skus"])
}
