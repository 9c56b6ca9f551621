package syncengine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
)

func TestCostReplace(t *testing.T) {
	sink := persistence.NewMemoryWarehouseStore()
	seedCosts(t, sink, warehouse.CostEntry{SKU: "OLD-1", UnitCost: decimal.RequireFromString("1.00")})

	count, err := NewCostService(sink).Replace(context.Background(), []CostEntryInput{
		{SKU: "WIDGET-1", UnitCost: "12.50", Note: "supplier A"},
		{SKU: "GADGET-2", UnitCost: "20"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := sink.ReadRows(context.Background(), warehouse.ModelCostsTable)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"WIDGET-1", "12.50", "supplier A"}, rows[0])
	assert.Equal(t, []string{"GADGET-2", "20.00", ""}, rows[1])
}

func TestCostReplaceValidation(t *testing.T) {
	sink := persistence.NewMemoryWarehouseStore()
	service := NewCostService(sink)
	seedCosts(t, sink, warehouse.CostEntry{SKU: "OLD-1", UnitCost: decimal.RequireFromString("1.00")})

	tests := []struct {
		name    string
		entries []CostEntryInput
	}{
		{"missing sku", []CostEntryInput{{UnitCost: "5.00"}}},
		{"bad decimal", []CostEntryInput{{SKU: "WIDGET-1", UnitCost: "twelve"}}},
		{"negative cost", []CostEntryInput{{SKU: "WIDGET-1", UnitCost: "-3.00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Replace(context.Background(), tt.entries)
			assert.ErrorIs(t, err, ErrInvalidCostEntry)
		})
	}

	// A rejected upload leaves the existing table untouched
	rows, err := sink.ReadRows(context.Background(), warehouse.ModelCostsTable)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCostReplaceEmptyUpload(t *testing.T) {
	sink := persistence.NewMemoryWarehouseStore()
	seedCosts(t, sink, warehouse.CostEntry{SKU: "OLD-1", UnitCost: decimal.RequireFromString("1.00")})

	count, err := NewCostService(sink).Replace(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rows, err := sink.ReadRows(context.Background(), warehouse.ModelCostsTable)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
