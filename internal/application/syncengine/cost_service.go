package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
)

// ErrInvalidCostEntry indicates a cost upload row that cannot be stored
var ErrInvalidCostEntry = errors.New("costs: invalid entry")

// CostService maintains the Model_Costs table. An upload replaces the
// whole table; per-row merging is left to the uploader.
type CostService struct {
	sink warehouse.Sink
}

// NewCostService creates a new CostService
func NewCostService(sink warehouse.Sink) *CostService {
	return &CostService{sink: sink}
}

// Replace validates the uploaded entries and rewrites Model_Costs.
// Returns the number of rows stored.
func (s *CostService) Replace(ctx context.Context, entries []CostEntryInput) (int, error) {
	rows := make([][]string, 0, len(entries))
	for i, in := range entries {
		if in.SKU == "" {
			return 0, fmt.Errorf("%w: row %d: missing sku", ErrInvalidCostEntry, i)
		}
		cost, err := decimal.NewFromString(in.UnitCost)
		if err != nil {
			return 0, fmt.Errorf("%w: row %d: unit_cost %q", ErrInvalidCostEntry, i, in.UnitCost)
		}
		if cost.IsNegative() {
			return 0, fmt.Errorf("%w: row %d: negative unit_cost", ErrInvalidCostEntry, i)
		}
		entry := warehouse.CostEntry{SKU: in.SKU, UnitCost: cost, Note: in.Note}
		rows = append(rows, entry.Row())
	}

	if err := s.sink.ClearTable(ctx, warehouse.ModelCostsTable); err != nil {
		return 0, fmt.Errorf("costs: clear: %w", err)
	}
	if err := s.sink.AppendRows(ctx, warehouse.ModelCostsTable, rows); err != nil {
		return 0, fmt.Errorf("costs: write: %w", err)
	}

	logger.L(ctx).Info("cost table replaced", zap.Int("rows", len(rows)))
	return len(rows), nil
}
