package warehouse

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salespipe/backend/internal/domain/calendar"
)

var seven = decimal.NewFromInt(7)

// InventoryRecord is one marketplace inventory SKU snapshot enriched with
// demand-derived replenishment signals.
type InventoryRecord struct {
	SnapshotDate time.Time
	SKU          string
	ASIN         string
	FNSKU        string
	ProductName  string
	Condition    string

	FulfillableQty int64
	InboundQty     int64
	ReservedQty    int64
	TotalQty       int64

	// WeeklyVelocity is average units sold per week over the lookback window
	WeeklyVelocity decimal.Decimal
	// WeeksOfSupply is FulfillableQty divided by WeeklyVelocity, zero when
	// velocity is zero
	WeeksOfSupply decimal.Decimal
	// ReorderBy is the projected stock-out date minus the lead time; zero
	// when velocity is zero
	ReorderBy time.Time
}

// ApplyVelocity derives WeeksOfSupply and ReorderBy from units sold over a
// lookback window of lookbackDays, given a supplier lead time.
func (r *InventoryRecord) ApplyVelocity(unitsSold int64, lookbackDays int, leadTimeDays int) {
	if lookbackDays <= 0 {
		return
	}
	weeks := decimal.NewFromInt(int64(lookbackDays)).Div(seven)
	r.WeeklyVelocity = decimal.NewFromInt(unitsSold).Div(weeks)

	if r.WeeklyVelocity.IsZero() || r.WeeklyVelocity.IsNegative() {
		r.WeeksOfSupply = decimal.Zero
		r.ReorderBy = time.Time{}
		return
	}
	r.WeeksOfSupply = decimal.NewFromInt(r.FulfillableQty).Div(r.WeeklyVelocity)

	daysOfSupply := r.WeeksOfSupply.Mul(seven).IntPart()
	r.ReorderBy = r.SnapshotDate.AddDate(0, 0, int(daysOfSupply)-leadTimeDays)
}

// Row serializes the record in InventoryFeedTable column order. The
// reorder_by cell reads "N/A" when there is no demand signal and
// "REORDER NOW" when the reorder date has already passed.
func (r *InventoryRecord) Row() []string {
	reorder := "N/A"
	if !r.ReorderBy.IsZero() {
		if r.ReorderBy.Before(r.SnapshotDate) {
			reorder = "REORDER NOW"
		} else {
			reorder = r.ReorderBy.Format(calendar.DateLayout)
		}
	}
	return []string{
		r.SnapshotDate.Format(calendar.DateLayout),
		r.SKU,
		r.ASIN,
		r.FNSKU,
		r.ProductName,
		r.Condition,
		strconv.FormatInt(r.FulfillableQty, 10),
		strconv.FormatInt(r.InboundQty, 10),
		strconv.FormatInt(r.ReservedQty, 10),
		strconv.FormatInt(r.TotalQty, 10),
		r.WeeklyVelocity.StringFixed(2),
		r.WeeksOfSupply.StringFixed(1),
		reorder,
	}
}
