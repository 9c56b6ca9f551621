package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WarehouseRowModel is the persistence model for one row of a logical
// warehouse table. Cells are stored as a JSON-encoded string array so the
// schema is independent of the logical table layout.
type WarehouseRowModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	LogicalTable string    `gorm:"column:table_name;size:64;not null;index:idx_warehouse_rows_table_pos,priority:1"`
	Position     int64     `gorm:"not null;index:idx_warehouse_rows_table_pos,priority:2"`
	Cells        string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName overrides the GORM table name
func (WarehouseRowModel) TableName() string {
	return "warehouse_rows"
}

// NewWarehouseRowModel builds a persisted row from logical cells
func NewWarehouseRowModel(tableName string, position int64, cells []string) (*WarehouseRowModel, error) {
	encoded, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}
	return &WarehouseRowModel{
		ID:           uuid.New(),
		LogicalTable: tableName,
		Position:     position,
		Cells:        string(encoded),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// DecodeCells decodes the stored JSON cell array
func (m *WarehouseRowModel) DecodeCells() ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(m.Cells), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
