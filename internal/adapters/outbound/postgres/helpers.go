// Package postgres provides a PostgreSQL implementation of the EventSink port.
package postgres

import (
	"encoding/json"
	"fmt"
)

// marshalFields safely marshals an event's field map to JSON, returning "{}"
// for nil/empty maps so the column is always valid JSON.
func marshalFields(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal event fields: %w", err)
	}
	return data, nil
}
