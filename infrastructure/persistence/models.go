// Package persistence provides the GORM-backed chunk store.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Float64Slice stores a []float64 as a JSON array.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ChunkModel is a row of document_chunks.
type ChunkModel struct {
	ID        int64        `gorm:"column:id;primaryKey;autoIncrement:false"`
	Text      string       `gorm:"column:text;type:text;not null"`
	Embedding Float64Slice `gorm:"column:embedding;type:json;not null"`
	Metadata  string       `gorm:"column:metadata;type:text"`
	CreatedAt time.Time    `gorm:"column:created_at;not null"`
}

// TableName returns the table name.
func (ChunkModel) TableName() string { return "document_chunks" }

// PropertyModel is a key/value row describing the store itself.
type PropertyModel struct {
	Key   string `gorm:"column:key;primaryKey;size:64"`
	Value string `gorm:"column:value;type:text;not null"`
}

// TableName returns the table name.
func (PropertyModel) TableName() string { return "store_properties" }

// propertyDimension records the embedding length fixed by the first insert.
const propertyDimension = "embedding_dimension"
