package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Telemetry is the raw key/value payload returned by the telemetry query.
// It is read once per fetch and never modified.
type Telemetry map[string]any

// Float returns a numeric field. Numeric strings are accepted since some
// installations report counters as text.
func (t Telemetry) Float(key string) (float64, bool) {
	v, ok := t[key]
	if !ok || v == nil {
		return 0, false
	}

	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (t Telemetry) String(key string) (string, bool) {
	v, ok := t[key]
	if !ok || v == nil {
		return "", false
	}

	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

func (t Telemetry) Value(key string) (any, bool) {
	v, ok := t[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
