package syncengine

import (
	"github.com/shopspring/decimal"

	"github.com/salespipe/backend/internal/domain/warehouse"
)

// SyncRequest carries the parameters of one sales sync run. An explicit
// Start/End pair takes precedence over Days; both empty means the
// configured default lookback.
type SyncRequest struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	Days     int    `form:"days"`
	Channels string `form:"channels"`
}

// ChannelOutcome reports one channel's contribution to a sync run
type ChannelOutcome struct {
	Channel warehouse.Channel `json:"channel"`
	Fetched int               `json:"fetched"`
	Error   string            `json:"error,omitempty"`
}

// SyncResult summarizes a completed sales sync run
type SyncResult struct {
	WindowStart string           `json:"window_start"`
	WindowEnd   string           `json:"window_end"`
	Fetched     int              `json:"fetched"`
	Appended    int              `json:"appended"`
	Duplicates  int              `json:"duplicates"`
	Channels    []ChannelOutcome `json:"channels"`
}

// Failed reports whether any requested channel failed to fetch
func (r *SyncResult) Failed() []warehouse.Channel {
	var failed []warehouse.Channel
	for _, outcome := range r.Channels {
		if outcome.Error != "" {
			failed = append(failed, outcome.Channel)
		}
	}
	return failed
}

// ChannelProfitability aggregates profitability per channel
type ChannelProfitability struct {
	Channel   warehouse.Channel `json:"channel"`
	Rows      int               `json:"rows"`
	Revenue   decimal.Decimal   `json:"revenue"`
	TotalFees decimal.Decimal   `json:"total_fees"`
	NetProfit decimal.Decimal   `json:"net_profit"`
	MarginPct decimal.Decimal   `json:"net_margin_pct"`
}

// ProfitabilityReport summarizes one recompute run
type ProfitabilityReport struct {
	Rows           int                    `json:"rows"`
	UnknownCostSKU int                    `json:"unknown_cost_skus"`
	Revenue        decimal.Decimal        `json:"revenue"`
	TotalCost      decimal.Decimal        `json:"total_cost"`
	TotalFees      decimal.Decimal        `json:"total_fees"`
	NetProfit      decimal.Decimal        `json:"net_profit"`
	ByChannel      []ChannelProfitability `json:"by_channel"`
}

// InventoryReport summarizes one inventory feed refresh
type InventoryReport struct {
	SnapshotDate string `json:"snapshot_date"`
	SKUs         int    `json:"skus"`
	ReorderNow   int    `json:"reorder_now"`
}

// CostEntryInput is one row of a cost table upload
type CostEntryInput struct {
	SKU      string `json:"sku" binding:"required"`
	UnitCost string `json:"unit_cost" binding:"required"`
	Note     string `json:"note"`
}
