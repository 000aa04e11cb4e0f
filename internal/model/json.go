package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONMap is a free-form JSON object stored in a single database column.
//
// Postgres stores it as jsonb; SQLite (tests) stores it as TEXT. Implementing
// driver.Valuer and sql.Scanner lets GORM read and write it without caring
// which backend is underneath.
type JSONMap map[string]any

// Value serializes the map for storage. A nil map is stored as SQL NULL so
// "no metadata" and "empty metadata" stay distinguishable.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("model: marshaling json column: %w", err)
	}
	return string(b), nil
}

// Scan deserializes a jsonb/TEXT column back into the map.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("model: unsupported source type for json column")
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// Bool reads a boolean flag from the map, returning fallback when the key is
// absent or not a bool. Used for metadata flags like isPublic / isBlinded.
func (m JSONMap) Bool(key string, fallback bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return fallback
}

// String reads a string field from the map, returning fallback when the key
// is absent or not a string.
func (m JSONMap) String(key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
