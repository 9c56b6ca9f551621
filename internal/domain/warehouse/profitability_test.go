package warehouse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleFixture() *LineItemRecord {
	rec := &LineItemRecord{
		Channel:      ChannelAmazon,
		OrderID:      "114-77",
		LineID:       "li-1",
		SKU:          "GADGET-2",
		Qty:          2,
		ItemGross:    decimal.RequireFromString("100.00"),
		ItemDiscount: decimal.RequireFromString("10.00"),
		Refund:       decimal.RequireFromString("5.00"),
		Fees: FeeBreakdown{
			Fulfillment: decimal.RequireFromString("6.00"),
			Referral:    decimal.RequireFromString("9.00"),
		},
		Currency: "USD",
	}
	rec.SetDate(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	return rec
}

func TestComputeProfitability(t *testing.T) {
	costs := CostTable{"GADGET-2": decimal.RequireFromString("20.00")}

	rec := ComputeProfitability(saleFixture(), costs)

	// revenue = 100 - 10; totalCost = 20 * 2; gross = 90 - 40
	// net = 50 - 15 fees - 5 refund
	assert.True(t, rec.Revenue.Equal(decimal.RequireFromString("90.00")), "revenue %s", rec.Revenue)
	assert.True(t, rec.TotalCost.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, rec.GrossProfit.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, rec.TotalFees.Equal(decimal.RequireFromString("15.00")))
	assert.True(t, rec.NetProfit.Equal(decimal.RequireFromString("30.00")), "net %s", rec.NetProfit)

	assert.Equal(t, "55.56", rec.GrossMarginPct.StringFixed(2))
	assert.Equal(t, "33.33", rec.NetMarginPct.StringFixed(2))

	assert.True(t, rec.RevenuePerUnit.Equal(decimal.RequireFromString("45.00")))
	assert.True(t, rec.CostPerUnit.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, rec.ProfitPerUnit.Equal(decimal.RequireFromString("15.00")))

	assert.True(t, rec.CostKnown)
	assert.Equal(t, "2024-W23", rec.YearWeek)
}

func TestComputeProfitabilityUnknownSKU(t *testing.T) {
	rec := ComputeProfitability(saleFixture(), CostTable{})

	assert.False(t, rec.CostKnown)
	assert.True(t, rec.UnitCost.IsZero())
	assert.True(t, rec.TotalCost.IsZero())
	// Without a cost, gross profit equals revenue
	assert.True(t, rec.GrossProfit.Equal(rec.Revenue))
}

func TestComputeProfitabilityZeroGuards(t *testing.T) {
	item := &LineItemRecord{Channel: ChannelShopify, OrderID: "1", LineID: "1", SKU: "X", Qty: 0}
	item.SetDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	rec := ComputeProfitability(item, CostTable{})

	assert.True(t, rec.GrossMarginPct.IsZero())
	assert.True(t, rec.NetMarginPct.IsZero())
	assert.True(t, rec.RevenuePerUnit.IsZero())
	assert.True(t, rec.ProfitPerUnit.IsZero())
}

func TestProfitabilityRowOrder(t *testing.T) {
	rec := ComputeProfitability(saleFixture(), CostTable{"GADGET-2": decimal.RequireFromString("20.00")})
	row := rec.Row()

	require.Len(t, row, len(ModelProfitabilityTable.Columns))
	assert.Equal(t, "90.00", row[ModelProfitabilityTable.ColumnIndex("revenue")])
	assert.Equal(t, "30.00", row[ModelProfitabilityTable.ColumnIndex("net_profit")])
	assert.Equal(t, "true", row[ModelProfitabilityTable.ColumnIndex("cost_known")])
}

func TestCostTableFromRows(t *testing.T) {
	rows := [][]string{
		{"SKU-A", "12.50", ""},
		{"SKU-B", "bogus", "bad cell parses as zero"},
		{"", "9.99", "skipped"},
		{"SKU-A", "13.00", "later row wins"},
	}
	table := CostTableFromRows(rows)

	require.Len(t, table, 2)
	cost, ok := table.Lookup("SKU-A")
	require.True(t, ok)
	assert.True(t, cost.Equal(decimal.RequireFromString("13.00")))
	cost, ok = table.Lookup("SKU-B")
	require.True(t, ok)
	assert.True(t, cost.IsZero())
}

func TestSummarizeProfitability(t *testing.T) {
	costs := CostTable{"GADGET-2": decimal.RequireFromString("20.00")}
	known := ComputeProfitability(saleFixture(), costs)

	unknownItem := saleFixture()
	unknownItem.SKU = "MYSTERY"
	unknown := ComputeProfitability(unknownItem, costs)

	s := SummarizeProfitability([]ProfitabilityRecord{known, unknown, unknown})

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.UnknownCostSKU)
	assert.True(t, s.Revenue.Equal(decimal.RequireFromString("270.00")))
}
