package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/salespipe/backend/internal/domain/warehouse"
)

// MemoryWarehouseStore is an in-memory warehouse.Sink used in tests and
// local development without a database.
type MemoryWarehouseStore struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

var _ warehouse.Sink = (*MemoryWarehouseStore)(nil)

// NewMemoryWarehouseStore creates an empty in-memory store
func NewMemoryWarehouseStore() *MemoryWarehouseStore {
	return &MemoryWarehouseStore{tables: make(map[string][][]string)}
}

// AppendRows appends rows to the table, preserving input order
func (s *MemoryWarehouseStore) AppendRows(_ context.Context, table warehouse.Table, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cells := range rows {
		copied := make([]string, len(cells))
		copy(copied, cells)
		s.tables[table.Name] = append(s.tables[table.Name], copied)
	}
	return nil
}

// ReadColumn returns one column of the table in row order
func (s *MemoryWarehouseStore) ReadColumn(_ context.Context, table warehouse.Table, column string) ([]string, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", table.Name, column)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table.Name]
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
func (s *MemoryWarehouseStore) ReadRows(_ context.Context, table warehouse.Table) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table.Name]
	out := make([][]string, 0, len(rows))
	for _, cells := range rows {
		copied := make([]string, len(cells))
		copy(copied, cells)
		out = append(out, copied)
	}
	return out, nil
}

// ClearTable removes every row of the table
func (s *MemoryWarehouseStore) ClearTable(_ context.Context, table warehouse.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table.Name)
	return nil
}

// SortTable reorders the table's rows by one column
func (s *MemoryWarehouseStore) SortTable(_ context.Context, table warehouse.Table, column string, descending bool) error {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return fmt.Errorf("table %s has no column %q", table.Name, column)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table.Name]
	sort.SliceStable(rows, func(a, b int) bool {
		var ka, kb string
		if idx < len(rows[a]) {
			ka = rows[a][idx]
		}
		if idx < len(rows[b]) {
			kb = rows[b][idx]
		}
		cmp := compareCells(ka, kb)
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return nil
}
