package syncengine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/telemetry"
)

// InventoryOptions tunes the inventory feed refresh
type InventoryOptions struct {
	// VelocityLookbackDays is the sales window used to estimate demand
	VelocityLookbackDays int
	// LeadTimeDays is the supplier lead time subtracted from the
	// projected stock-out date
	LeadTimeDays int
	// Now is overridable for tests
	Now func() time.Time
}

func (o *InventoryOptions) normalize() {
	if o.VelocityLookbackDays <= 0 {
		o.VelocityLookbackDays = 28
	}
	if o.LeadTimeDays <= 0 {
		o.LeadTimeDays = 14
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// InventoryService refreshes the Inventory_Feed table: current stock
// positions from the marketplace joined with recent sales velocity.
type InventoryService struct {
	sink      warehouse.Sink
	providers []channel.InventoryProvider
	opts      InventoryOptions
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(sink warehouse.Sink, providers []channel.InventoryProvider, opts InventoryOptions) *InventoryService {
	opts.normalize()
	return &InventoryService{sink: sink, providers: providers, opts: opts}
}

// Refresh pulls inventory snapshots, derives replenishment signals from
// recent sales, and rewrites Inventory_Feed.
func (s *InventoryService) Refresh(ctx context.Context) (report *InventoryReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory.refresh")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	log := logger.L(ctx)

	var records []*warehouse.InventoryRecord
	for _, provider := range s.providers {
		batch, err := provider.FetchInventory(ctx)
		if err != nil {
			return nil, fmt.Errorf("inventory: fetch: %w", err)
		}
		records = append(records, batch...)
	}

	unitsBySKU, err := s.recentUnitsBySKU(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	report = &InventoryReport{SnapshotDate: now.Format(calendar.DateLayout)}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rec.ApplyVelocity(unitsBySKU[rec.SKU], s.opts.VelocityLookbackDays, s.opts.LeadTimeDays)
		if !rec.ReorderBy.IsZero() && rec.ReorderBy.Before(rec.SnapshotDate) {
			report.ReorderNow++
		}
		rows = append(rows, rec.Row())
	}
	report.SKUs = len(rows)

	if err := s.sink.ClearTable(ctx, warehouse.InventoryFeedTable); err != nil {
		return nil, fmt.Errorf("inventory: clear: %w", err)
	}
	if err := s.sink.AppendRows(ctx, warehouse.InventoryFeedTable, rows); err != nil {
		return nil, fmt.Errorf("inventory: write: %w", err)
	}

	log.Info("inventory feed refreshed",
		zap.Int("skus", report.SKUs),
		zap.Int("reorder_now", report.ReorderNow))
	return report, nil
}

// recentUnitsBySKU reads Sales_Fact once and sums units sold per SKU
// within the velocity lookback window.
func (s *InventoryService) recentUnitsBySKU(ctx context.Context) (map[string]int64, error) {
	rows, err := s.sink.ReadRows(ctx, warehouse.SalesFactTable)
	if err != nil {
		return nil, fmt.Errorf("inventory: read sales: %w", err)
	}

	dateIdx := warehouse.SalesFactTable.ColumnIndex("date")
	skuIdx := warehouse.SalesFactTable.ColumnIndex("sku")
	qtyIdx := warehouse.SalesFactTable.ColumnIndex("qty")
	cutoff := calendar.StartOfDay(s.opts.Now().AddDate(0, 0, -s.opts.VelocityLookbackDays))

	units := make(map[string]int64)
	for _, row := range rows {
		if len(row) <= qtyIdx || row[skuIdx] == "" {
			continue
		}
		date, err := time.ParseInLocation(calendar.DateLayout, row[dateIdx], time.UTC)
		if err != nil || date.Before(cutoff) {
			continue
		}
		qty, err := strconv.ParseInt(row[qtyIdx], 10, 64)
		if err != nil {
			continue
		}
		units[row[skuIdx]] += qty
	}
	return units, nil
}
