package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
)

func seedSalesFact(t *testing.T, sink warehouse.Sink, records ...*warehouse.LineItemRecord) {
	t.Helper()
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	require.NoError(t, sink.AppendRows(context.Background(), warehouse.SalesFactTable, rows))
}

func seedCosts(t *testing.T, sink warehouse.Sink, entries ...warehouse.CostEntry) {
	t.Helper()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.Row())
	}
	require.NoError(t, sink.AppendRows(context.Background(), warehouse.ModelCostsTable, rows))
}

func TestProfitabilityRecompute(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sink := persistence.NewMemoryWarehouseStore()

	sale := lineItem(warehouse.ChannelShopify, "5001", "9001", "GADGET-2", 2, "100.00", day)
	sale.ItemDiscount = decimal.RequireFromString("10.00")
	sale.Fees.Transaction = decimal.RequireFromString("6.00")
	sale.Fees.Referral = decimal.RequireFromString("9.00")
	sale.Refund = decimal.RequireFromString("5.00")
	seedSalesFact(t, sink, sale,
		lineItem(warehouse.ChannelAmazon, "114-001", "li-1", "MYSTERY-9", 1, "50.00", day))
	seedCosts(t, sink, warehouse.CostEntry{SKU: "GADGET-2", UnitCost: decimal.RequireFromString("20.00")})

	report, err := NewProfitabilityService(sink).Recompute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.UnknownCostSKU)
	// 90 from the Shopify line (100 - 10 discount) plus 50 from Amazon
	assert.Equal(t, "140.00", report.Revenue.StringFixed(2))

	require.Len(t, report.ByChannel, 2)
	amazon, shopify := report.ByChannel[0], report.ByChannel[1]
	assert.Equal(t, warehouse.ChannelAmazon, amazon.Channel)
	assert.Equal(t, "50.00", amazon.Revenue.StringFixed(2))
	assert.Equal(t, "100.00", amazon.MarginPct.StringFixed(2))
	assert.Equal(t, warehouse.ChannelShopify, shopify.Channel)
	// Gross profit 50 minus 15 fees and 5 refund, margin 30/90
	assert.Equal(t, "30.00", shopify.NetProfit.StringFixed(2))
	assert.Equal(t, "33.33", shopify.MarginPct.StringFixed(2))

	rows, err := sink.ReadRows(context.Background(), warehouse.ModelProfitabilityTable)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	idx := warehouse.ModelProfitabilityTable.ColumnIndex
	assert.Equal(t, "GADGET-2", rows[0][idx("sku")])
	assert.Equal(t, "true", rows[0][idx("cost_known")])
	assert.Equal(t, "false", rows[1][idx("cost_known")])
}

func TestProfitabilityRecomputeIsDeterministic(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sink := persistence.NewMemoryWarehouseStore()
	seedSalesFact(t, sink,
		lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", day),
		lineItem(warehouse.ChannelShopify, "5002", "9002", "GADGET-2", 2, "80.00", day))
	seedCosts(t, sink, warehouse.CostEntry{SKU: "WIDGET-1", UnitCost: decimal.RequireFromString("12.00")})

	service := NewProfitabilityService(sink)
	_, err := service.Recompute(context.Background())
	require.NoError(t, err)
	first, err := sink.ReadRows(context.Background(), warehouse.ModelProfitabilityTable)
	require.NoError(t, err)

	_, err = service.Recompute(context.Background())
	require.NoError(t, err)
	second, err := sink.ReadRows(context.Background(), warehouse.ModelProfitabilityTable)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProfitabilityMissingCostTable(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sink := persistence.NewMemoryWarehouseStore()
	seedSalesFact(t, sink, lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", day))

	report, err := NewProfitabilityService(sink).Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 1, report.UnknownCostSKU)
}

func TestProfitabilitySkipsMalformedRows(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sink := persistence.NewMemoryWarehouseStore()
	seedSalesFact(t, sink, lineItem(warehouse.ChannelShopify, "5001", "9001", "WIDGET-1", 1, "30.00", day))
	require.NoError(t, sink.AppendRows(context.Background(), warehouse.SalesFactTable,
		[][]string{{"2024-06-03", "Shopify"}}))

	report, err := NewProfitabilityService(sink).Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rows)
}
