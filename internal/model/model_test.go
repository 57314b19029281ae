package model

import (
	"encoding/json"
	"testing"

	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeKey(t *testing.T) {
	key := CompositeKey("XRGI-1042", "energy")
	assert.Equal(t, "XRGI-1042#energy", key)

	device, kind, ok := SplitKey(key)
	require.True(t, ok)
	assert.Equal(t, "XRGI-1042", device)
	assert.Equal(t, "energy", kind)

	_, _, ok = SplitKey("no-separator")
	assert.False(t, ok)
}

func TestNewEventRecord(t *testing.T) {
	rec := NewEventRecord("d1", "heat", timestamp.FromNumber(1700000000), json.RawMessage(`{"a":1}`))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "d1#heat", rec.Key)
}

func TestTelemetry_Float(t *testing.T) {
	var tel Telemetry
	require.NoError(t, json.Unmarshal([]byte(`{"a": 45000, "b": "12.5", "c": "n/a", "d": null, "e": true}`), &tel))

	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"a", 45000, true},
		{"b", 12.5, true},
		{"c", 0, false},
		{"d", 0, false},
		{"e", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := tel.Float(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTelemetry_String(t *testing.T) {
	tel := Telemetry{"s": "2025-01-01", "n": float64(3), "null": nil}

	s, ok := tel.String("s")
	assert.True(t, ok)
	assert.Equal(t, "2025-01-01", s)

	s, ok = tel.String("n")
	assert.True(t, ok)
	assert.Equal(t, "3", s)

	_, ok = tel.String("null")
	assert.False(t, ok)
}
