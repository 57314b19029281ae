package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

const keySeparator = "#"

// EventRecord is one row of the upstream event log. Only rows whose Key
// matches the active device and metric kind are of interest to a caller.
type EventRecord struct {
	ID        string                 `json:"id,omitempty"`
	Key       string                 `json:"key"`
	Timestamp timestamp.RawTimestamp `json:"timestamp"`
	Value     json.RawMessage        `json:"value"`
}

func NewEventRecord(deviceID, metricKind string, ts timestamp.RawTimestamp, value json.RawMessage) *EventRecord {
	return &EventRecord{
		ID:        uuid.New().String(),
		Key:       CompositeKey(deviceID, metricKind),
		Timestamp: ts,
		Value:     value,
	}
}

// CompositeKey builds the "<deviceId>#<metricKind>" selector.
func CompositeKey(deviceID, metricKind string) string {
	return deviceID + keySeparator + metricKind
}

func SplitKey(key string) (deviceID, metricKind string, ok bool) {
	return strings.Cut(key, keySeparator)
}
