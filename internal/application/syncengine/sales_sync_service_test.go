package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	infrachannel "github.com/salespipe/backend/internal/infrastructure/channel"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeAdapter struct {
	channel   warehouse.Channel
	records   []*warehouse.LineItemRecord
	err       error
	inventory []*warehouse.InventoryRecord
	calls     int
}

func (f *fakeAdapter) Channel() warehouse.Channel { return f.channel }

func (f *fakeAdapter) FetchLineItems(_ context.Context, _ calendar.Window) ([]*warehouse.LineItemRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeAdapter) FetchInventory(_ context.Context) ([]*warehouse.InventoryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inventory, nil
}

func lineItem(ch warehouse.Channel, orderID, lineID, sku string, qty int64, gross string, date time.Time) *warehouse.LineItemRecord {
	rec := &warehouse.LineItemRecord{
		Channel:   ch,
		OrderID:   orderID,
		LineID:    lineID,
		SKU:       sku,
		Qty:       qty,
		ItemGross: decimal.RequireFromString(gross),
		Currency:  "USD",
		Region:    "US",
	}
	rec.SetDate(date)
	return rec
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newSyncService(sink warehouse.Sink, adapters ...channel.Adapter) *SalesSyncService {
	return NewSalesSyncService(sink, channel.NewRegistry(adapters...), SyncOptions{
		DefaultWindowDays: 30,
		Now:               fixedNow,
	})
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSalesSyncAppendsNewRecords(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 2, "60.00", day),
		lineItem(warehouse.ChannelShopify, "5001", "9002", "GADGET-2", 1, "40.00", day),
	}}
	sink := persistence.NewMemoryWarehouseStore()

	result, err := newSyncService(sink, shopify).Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Appended)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, "2024-05-16", result.WindowStart)
	assert.Equal(t, "2024-06-15", result.WindowEnd)

	rows, err := sink.ReadRows(context.Background(), warehouse.SalesFactTable)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "5001", rows[0][warehouse.SalesFactTable.ColumnIndex("order_id")])
}

// Drives the full path from the Shopify Admin API through normalization to
// the warehouse sink: one order with two lines lands as two rows, each
// carrying the full order-level tax and shipping.
func TestSalesSyncShopifyOrderEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order := infrachannel.ShopifyOrder{
			ID:        1001,
			Name:      "#1001",
			CreatedAt: "2024-06-10T09:00:00Z",
			Currency:  "USD",
			TotalTax:  "3.50",
			TotalShippingPriceSet: &infrachannel.ShopifyPriceSet{
				ShopMoney: infrachannel.ShopifyMoney{Amount: "5.00", CurrencyCode: "USD"},
			},
			LineItems: []infrachannel.ShopifyLineItem{
				{ID: 2001, SKU: "SKU-A", Title: "Item A", Quantity: 2, Price: "10.00"},
				{ID: 2002, SKU: "SKU-B", Title: "Item B", Quantity: 1, Price: "25.00"},
			},
		}
		json.NewEncoder(w).Encode(infrachannel.ShopifyOrdersResponse{Orders: []infrachannel.ShopifyOrder{order}})
	}))
	t.Cleanup(server.Close)

	shopifyCfg := infrachannel.NewShopifyConfig("acme.myshopify.com", "shpat_test")
	shopifyCfg.BaseURL = server.URL
	adapter, err := infrachannel.NewShopifyAdapter(shopifyCfg)
	require.NoError(t, err)

	sink := persistence.NewMemoryWarehouseStore()
	result, err := newSyncService(sink, adapter).Run(context.Background(), SyncRequest{Channels: "shopify"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Appended)

	rows, err := sink.ReadRows(context.Background(), warehouse.SalesFactTable)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	grossIdx := warehouse.SalesFactTable.ColumnIndex("item_gross")
	taxIdx := warehouse.SalesFactTable.ColumnIndex("tax")
	shipIdx := warehouse.SalesFactTable.ColumnIndex("shipping")
	assert.Equal(t, "20.00", rows[0][grossIdx])
	assert.Equal(t, "25.00", rows[1][grossIdx])
	for _, row := range rows {
		assert.Equal(t, "3.50", row[taxIdx])
		assert.Equal(t, "5.00", row[shipIdx])
	}
}

func TestSalesSyncIsIdempotent(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 2, "60.00", day),
	}}
	sink := persistence.NewMemoryWarehouseStore()
	service := newSyncService(sink, shopify)

	first, err := service.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Appended)

	second, err := service.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Appended)
	assert.Equal(t, 1, second.Duplicates)

	rows, err := sink.ReadRows(context.Background(), warehouse.SalesFactTable)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSalesSyncFirstWriteWins(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	original := lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 2, "60.00", day)
	sink := persistence.NewMemoryWarehouseStore()

	service := newSyncService(sink, &fakeAdapter{channel: warehouse.ChannelShopify,
		records: []*warehouse.LineItemRecord{original}})
	_, err := service.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	// Same identity comes back with a different price; the stored row keeps
	// the original value.
	changed := lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 2, "99.00", day)
	service = newSyncService(sink, &fakeAdapter{channel: warehouse.ChannelShopify,
		records: []*warehouse.LineItemRecord{changed}})
	result, err := service.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Appended)

	rows, err := sink.ReadRows(context.Background(), warehouse.SalesFactTable)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "60.00", rows[0][warehouse.SalesFactTable.ColumnIndex("item_gross")])
}

func TestSalesSyncChannelIsolation(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 2, "60.00", day),
	}}
	amazon := &fakeAdapter{channel: warehouse.ChannelAmazon, err: channel.ErrNotConfigured}
	sink := persistence.NewMemoryWarehouseStore()

	result, err := newSyncService(sink, shopify, amazon).Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, []warehouse.Channel{warehouse.ChannelAmazon}, result.Failed())
}

func TestSalesSyncAllChannelsFailed(t *testing.T) {
	sink := persistence.NewMemoryWarehouseStore()
	service := newSyncService(sink,
		&fakeAdapter{channel: warehouse.ChannelShopify, err: channel.ErrRequestFailed},
		&fakeAdapter{channel: warehouse.ChannelAmazon, err: channel.ErrNotConfigured},
	)

	_, err := service.Run(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, ErrAllChannelsFailed)

	rows, err := sink.ReadRows(context.Background(), warehouse.SalesFactTable)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSalesSyncChannelSelector(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", day),
	}}
	amazon := &fakeAdapter{channel: warehouse.ChannelAmazon}
	sink := persistence.NewMemoryWarehouseStore()
	service := newSyncService(sink, shopify, amazon)

	result, err := service.Run(context.Background(), SyncRequest{Channels: "shopify"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, 0, amazon.calls)

	_, err = service.Run(context.Background(), SyncRequest{Channels: "ebay"})
	assert.ErrorIs(t, err, warehouse.ErrUnknownChannel)
}

func TestSalesSyncInvalidWindow(t *testing.T) {
	sink := persistence.NewMemoryWarehouseStore()
	service := newSyncService(sink, &fakeAdapter{channel: warehouse.ChannelShopify})

	_, err := service.Run(context.Background(), SyncRequest{Start: "06/01/2024", End: "2024-06-15"})
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)

	_, err = service.Run(context.Background(), SyncRequest{Start: "2024-06-15", End: "2024-06-01"})
	assert.ErrorIs(t, err, calendar.ErrInvertedWindow)
}

func TestSalesSyncSortAfterAppend(t *testing.T) {
	early := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", early),
		lineItem(warehouse.ChannelShopify, "5002", "9002", "WIDGET-1", 1, "30.00", late),
	}}
	sink := persistence.NewMemoryWarehouseStore()
	service := NewSalesSyncService(sink, channel.NewRegistry(shopify), SyncOptions{
		DefaultWindowDays: 30,
		SortAfterAppend:   true,
		Now:               fixedNow,
	})

	_, err := service.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	dates, err := sink.ReadColumn(context.Background(), warehouse.SalesFactTable, "date")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10", "2024-06-01"}, dates)
}

func TestSalesSyncAppendFailureIsFatal(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{channel: warehouse.ChannelShopify, records: []*warehouse.LineItemRecord{
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", day),
	}}
	boom := errors.New("disk full")
	sink := &failingSink{Sink: persistence.NewMemoryWarehouseStore(), appendErr: boom}

	_, err := newSyncService(sink, shopify).Run(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, boom)
}

type failingSink struct {
	warehouse.Sink
	appendErr error
}

func (f *failingSink) AppendRows(ctx context.Context, table warehouse.Table, rows [][]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Sink.AppendRows(ctx, table, rows)
}
