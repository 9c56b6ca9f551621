package persistence

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/persistence/models"
)

// GormWarehouseStore implements warehouse.Sink on top of the generic
// warehouse_rows table. Row order is the Position column.
type GormWarehouseStore struct {
	db *gorm.DB
}

var _ warehouse.Sink = (*GormWarehouseStore)(nil)

// NewGormWarehouseStore creates a new GormWarehouseStore
func NewGormWarehouseStore(db *gorm.DB) *GormWarehouseStore {
	return &GormWarehouseStore{db: db}
}

// AppendRows appends rows to the table, preserving input order
func (s *GormWarehouseStore) AppendRows(ctx context.Context, table warehouse.Table, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int64
		err := tx.Model(&models.WarehouseRowModel{}).
			Where("table_name = ?", table.Name).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error
		if err != nil {
			return fmt.Errorf("reading max position for %s: %w", table.Name, err)
		}

		records := make([]*models.WarehouseRowModel, 0, len(rows))
		for i, cells := range rows {
			m, err := models.NewWarehouseRowModel(table.Name, maxPos+int64(i)+1, cells)
			if err != nil {
				return fmt.Errorf("encoding row for %s: %w", table.Name, err)
			}
			records = append(records, m)
		}

		if err := tx.CreateInBatches(records, 500).Error; err != nil {
			return fmt.Errorf("appending rows to %s: %w", table.Name, err)
		}
		return nil
	})
}

// ReadColumn returns one column of the table in row order
func (s *GormWarehouseStore) ReadColumn(ctx context.Context, table warehouse.Table, column string) ([]string, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", table.Name, column)
	}

	rows, err := s.ReadRows(ctx, table)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rows))
	for _, cells := range rows {
		if idx < len(cells) {
			values = append(values, cells[idx])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

// ReadRows returns the full table contents in row order
func (s *GormWarehouseStore) ReadRows(ctx context.Context, table warehouse.Table) ([][]string, error) {
	var records []models.WarehouseRowModel
	err := s.db.WithContext(ctx).
		Where("table_name = ?", table.Name).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("reading rows from %s: %w", table.Name, err)
	}

	rows := make([][]string, 0, len(records))
	for i := range records {
		cells, err := records[i].DecodeCells()
		if err != nil {
			return nil, fmt.Errorf("decoding row %d of %s: %w", i, table.Name, err)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// ClearTable removes every row of the table
func (s *GormWarehouseStore) ClearTable(ctx context.Context, table warehouse.Table) error {
	err := s.db.WithContext(ctx).
		Where("table_name = ?", table.Name).
		Delete(&models.WarehouseRowModel{}).Error
	if err != nil {
		return fmt.Errorf("clearing table %s: %w", table.Name, err)
	}
	return nil
}

// SortTable reorders the table's rows by one column, numeric-aware, by
// rewriting positions inside a transaction.
func (s *GormWarehouseStore) SortTable(ctx context.Context, table warehouse.Table, column string, descending bool) error {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return fmt.Errorf("table %s has no column %q", table.Name, column)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []models.WarehouseRowModel
		if err := tx.Where("table_name = ?", table.Name).
			Order("position ASC").
			Find(&records).Error; err != nil {
			return fmt.Errorf("reading rows from %s: %w", table.Name, err)
		}

		keys := make([]string, len(records))
		for i := range records {
			cells, err := records[i].DecodeCells()
			if err != nil {
				return fmt.Errorf("decoding row %d of %s: %w", i, table.Name, err)
			}
			if idx < len(cells) {
				keys[i] = cells[idx]
			}
		}

		order := make([]int, len(records))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			cmp := compareCells(keys[order[a]], keys[order[b]])
			if descending {
				return cmp > 0
			}
			return cmp < 0
		})

		for newPos, orig := range order {
			rec := &records[orig]
			if err := tx.Model(&models.WarehouseRowModel{}).
				Where("id = ?", rec.ID).
				Update("position", int64(newPos)+1).Error; err != nil {
				return fmt.Errorf("repositioning row in %s: %w", table.Name, err)
			}
		}
		return nil
	})
}

// compareCells compares two cell values, numerically when both parse as
// numbers, lexicographically otherwise.
func compareCells(a, b string) int {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Cmp(db)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
