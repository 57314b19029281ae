package collector

import (
	"context"

	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

// Fetcher queries aggregated telemetry of one device for a window. It does
// not retry; cancelling ctx abandons the request.
type Fetcher interface {
	Fetch(ctx context.Context, deviceID string, w window.TimeWindow) (model.Telemetry, error)
	Health(ctx context.Context) error
	Name() string
}

// EventSource returns the current event log in full. Callers filter it.
type EventSource interface {
	Records(ctx context.Context) ([]model.EventRecord, error)
	Name() string
	Close() error
}

// Cleaner is implemented by sources that keep a local copy of the log.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}
