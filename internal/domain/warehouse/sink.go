package warehouse

import "context"

// Table names a logical destination table and fixes its column order
type Table struct {
	Name    string
	Columns []string
}

// ColumnIndex returns the position of a column in the table, or -1
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SalesFactTable holds one row per normalized order line item
var SalesFactTable = Table{
	Name: "Sales_Fact",
	Columns: []string{
		"date", "channel", "order_id", "line_id", "sku", "title", "qty",
		"item_gross", "item_discount", "shipping", "tax", "refund",
		"fulfillment_fee", "referral_fee", "transaction_fee", "storage_fee",
		"other_fees", "total_fees", "currency", "region",
		"iso_week", "iso_year", "year_week", "quarter",
		"customer_id", "customer_email", "customer_name",
		"customer_city", "customer_region", "customer_country", "customer_zip",
	},
}

// ModelCostsTable maps SKUs to unit costs
var ModelCostsTable = Table{
	Name:    "Model_Costs",
	Columns: []string{"sku", "unit_cost", "note"},
}

// ModelProfitabilityTable holds one derived row per sales-fact row
var ModelProfitabilityTable = Table{
	Name: "Model_Profitability",
	Columns: []string{
		"date", "channel", "order_id", "line_id", "sku", "qty",
		"revenue", "unit_cost", "total_cost", "gross_profit",
		"total_fees", "refund", "net_profit",
		"gross_margin_pct", "net_margin_pct",
		"revenue_per_unit", "cost_per_unit", "profit_per_unit",
		"cost_known", "iso_year", "iso_week", "year_week",
	},
}

// InventoryFeedTable holds one row per marketplace inventory SKU
var InventoryFeedTable = Table{
	Name: "Inventory_Feed",
	Columns: []string{
		"snapshot_date", "sku", "asin", "fnsku", "product_name", "condition",
		"fulfillable_qty", "inbound_qty", "reserved_qty", "total_qty",
		"weekly_velocity", "weeks_of_supply", "reorder_by",
	},
}

// Sink is the tabular warehouse port. Implementations persist rows in
// insertion order and treat every cell as opaque text.
type Sink interface {
	// AppendRows appends rows to the table; a no-op when rows is empty
	AppendRows(ctx context.Context, table Table, rows [][]string) error
	// ReadColumn returns every value of one column in row order
	ReadColumn(ctx context.Context, table Table, column string) ([]string, error)
	// ReadRows returns the full table contents in row order
	ReadRows(ctx context.Context, table Table) ([][]string, error)
	// ClearTable removes every row of the table
	ClearTable(ctx context.Context, table Table) error
	// SortTable reorders rows by one column. Best effort: callers must not
	// depend on it for correctness.
	SortTable(ctx context.Context, table Table, column string, descending bool) error
}
