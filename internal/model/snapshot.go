package model

import (
	"encoding/json"
	"time"
)

// Snapshot is the full device state captured at one polling cycle.
// Payload must not be modified after construction.
type Snapshot struct {
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}
