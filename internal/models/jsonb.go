package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores arbitrary JSON documents with GORM. On Postgres the column is
// a real jsonb; the sqlite test driver stores the raw bytes.
type JSONB []byte

// JSONBOf marshals v into a JSONB value, falling back to an empty object on
// marshal failure so callers can use it fire-and-forget.
func JSONBOf(v any) JSONB {
	if v == nil {
		return JSONB("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return JSONB("{}")
	}
	return JSONB(b)
}

func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return []byte(j), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB("{}")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = JSONB(v)
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("jsonb scan: %w", err)
		}
		*j = JSONB(b)
		return nil
	}
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return []byte(j), nil
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = JSONB(data)
	return nil
}
