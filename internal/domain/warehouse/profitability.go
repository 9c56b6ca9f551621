package warehouse

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ---------------------------------------------------------------------------
// Cost table
// ---------------------------------------------------------------------------

// CostEntry is one SKU's unit cost with an optional note
type CostEntry struct {
	SKU      string
	UnitCost decimal.Decimal
	Note     string
}

// CostTable maps SKU to unit cost for the profitability join
type CostTable map[string]decimal.Decimal

// Lookup returns the unit cost for a SKU and whether it is known
func (c CostTable) Lookup(sku string) (decimal.Decimal, bool) {
	cost, ok := c[sku]
	return cost, ok
}

// CostTableFromRows builds a cost table from ModelCostsTable rows.
// Later rows win for duplicate SKUs.
func CostTableFromRows(rows [][]string) CostTable {
	table := make(CostTable, len(rows))
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		table[row[0]] = ParseDecimal(row[1])
	}
	return table
}

// Row serializes a cost entry in ModelCostsTable column order
func (e CostEntry) Row() []string {
	return []string{e.SKU, e.UnitCost.StringFixed(2), e.Note}
}

// ---------------------------------------------------------------------------
// Profitability
// ---------------------------------------------------------------------------

// ProfitabilityRecord is one derived row joining a sales-fact line item
// against the cost table.
type ProfitabilityRecord struct {
	Date     string
	Channel  Channel
	OrderID  string
	LineID   string
	SKU      string
	Qty      int64
	Revenue  decimal.Decimal
	UnitCost decimal.Decimal
	// TotalCost is UnitCost times Qty
	TotalCost   decimal.Decimal
	GrossProfit decimal.Decimal
	TotalFees   decimal.Decimal
	Refund      decimal.Decimal
	NetProfit   decimal.Decimal
	// Margins are percentages of Revenue, zero when Revenue is zero
	GrossMarginPct decimal.Decimal
	NetMarginPct   decimal.Decimal
	// Per-unit economics, zero when Qty is zero
	RevenuePerUnit decimal.Decimal
	CostPerUnit    decimal.Decimal
	ProfitPerUnit  decimal.Decimal
	// CostKnown is false when the SKU is absent from the cost table; the
	// row is still produced with a zero unit cost
	CostKnown bool
	ISOYear   int
	ISOWeek   int
	YearWeek  string
}

// ComputeProfitability derives one profitability record from a sales-fact
// line item and the cost table.
func ComputeProfitability(item *LineItemRecord, costs CostTable) ProfitabilityRecord {
	unitCost, known := costs.Lookup(item.SKU)
	qty := decimal.NewFromInt(item.Qty)

	revenue := item.ItemGross.Sub(item.ItemDiscount)
	totalCost := unitCost.Mul(qty)
	grossProfit := revenue.Sub(totalCost)
	totalFees := item.TotalFees()
	netProfit := grossProfit.Sub(totalFees).Sub(item.Refund)

	rec := ProfitabilityRecord{
		Date:        item.Date.Format("2006-01-02"),
		Channel:     item.Channel,
		OrderID:     item.OrderID,
		LineID:      item.LineID,
		SKU:         item.SKU,
		Qty:         item.Qty,
		Revenue:     revenue,
		UnitCost:    unitCost,
		TotalCost:   totalCost,
		GrossProfit: grossProfit,
		TotalFees:   totalFees,
		Refund:      item.Refund,
		NetProfit:   netProfit,
		CostKnown:   known,
		ISOYear:     item.ISOYear,
		ISOWeek:     item.ISOWeek,
		YearWeek:    item.YearWeek,
	}

	if !revenue.IsZero() {
		rec.GrossMarginPct = grossProfit.Div(revenue).Mul(hundred)
		rec.NetMarginPct = netProfit.Div(revenue).Mul(hundred)
	}
	if item.Qty > 0 {
		rec.RevenuePerUnit = revenue.Div(qty)
		rec.CostPerUnit = totalCost.Div(qty)
		rec.ProfitPerUnit = netProfit.Div(qty)
	}
	return rec
}

// Row serializes the record in ModelProfitabilityTable column order
func (p ProfitabilityRecord) Row() []string {
	return []string{
		p.Date,
		string(p.Channel),
		p.OrderID,
		p.LineID,
		p.SKU,
		strconv.FormatInt(p.Qty, 10),
		p.Revenue.StringFixed(2),
		p.UnitCost.StringFixed(2),
		p.TotalCost.StringFixed(2),
		p.GrossProfit.StringFixed(2),
		p.TotalFees.StringFixed(2),
		p.Refund.StringFixed(2),
		p.NetProfit.StringFixed(2),
		p.GrossMarginPct.StringFixed(2),
		p.NetMarginPct.StringFixed(2),
		p.RevenuePerUnit.StringFixed(2),
		p.CostPerUnit.StringFixed(2),
		p.ProfitPerUnit.StringFixed(2),
		strconv.FormatBool(p.CostKnown),
		strconv.Itoa(p.ISOYear),
		strconv.Itoa(p.ISOWeek),
		p.YearWeek,
	}
}

// ProfitabilitySummary aggregates a batch of profitability records
type ProfitabilitySummary struct {
	Rows           int
	UnknownCostSKU int
	Revenue        decimal.Decimal
	TotalCost      decimal.Decimal
	TotalFees      decimal.Decimal
	NetProfit      decimal.Decimal
}

// SummarizeProfitability folds profitability records into totals
func SummarizeProfitability(records []ProfitabilityRecord) ProfitabilitySummary {
	var s ProfitabilitySummary
	unknown := make(map[string]bool)
	for _, rec := range records {
		s.Rows++
		s.Revenue = s.Revenue.Add(rec.Revenue)
		s.TotalCost = s.TotalCost.Add(rec.TotalCost)
		s.TotalFees = s.TotalFees.Add(rec.TotalFees)
		s.NetProfit = s.NetProfit.Add(rec.NetProfit)
		if !rec.CostKnown && !unknown[rec.SKU] {
			unknown[rec.SKU] = true
			s.UnknownCostSKU++
		}
	}
	return s
}
