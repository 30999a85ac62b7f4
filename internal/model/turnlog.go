package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TurnRecord is one row of the chat_turns log.
type TurnRecord struct {
	SessionID  string    `json:"session_id" db:"session_id"`
	TurnID     string    `json:"turn_id" db:"turn_id"`
	Message    string    `json:"message" db:"message"` // sanitised
	Intent     string    `json:"intent" db:"intent"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Verdict    string    `json:"verdict" db:"verdict"`
	FlowState  string    `json:"flow_state" db:"flow_state"`
	NextState  string    `json:"next_state" db:"next_state"`
	Entities   JSONMap   `json:"entities" db:"entities"`
	TookMs     int64     `json:"took_ms" db:"took_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// JSONMap represents a JSON object column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSONMap source %T", value)
	}
}

// EntitiesToJSONMap flattens an entity set for storage.
func EntitiesToJSONMap(e EntitySet) JSONMap {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	var m JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
