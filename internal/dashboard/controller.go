package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/collector"
	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

// Controller owns the dashboard of one device for one viewer. Every Select
// gets a new generation; a fetch result is applied only while its generation
// is still the latest, so the last request wins regardless of the order in
// which responses arrive.
type Controller struct {
	log      *slog.Logger
	fetcher  collector.Fetcher
	resolver *window.Resolver
	norm     *display.Normalizer
	deviceID string
	now      func() time.Time
	onUpdate func(View)

	// notifyMu keeps onUpdate calls in the order views were applied.
	notifyMu   sync.Mutex
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	view       View
	wg         sync.WaitGroup
}

// NewController builds a Controller. onUpdate, if set, receives every view
// that is applied, one call at a time, without the state lock held.
func NewController(
	log *slog.Logger,
	fetcher collector.Fetcher,
	resolver *window.Resolver,
	norm *display.Normalizer,
	deviceID string,
	onUpdate func(View),
) *Controller {
	return &Controller{
		log:      log,
		fetcher:  fetcher,
		resolver: resolver,
		norm:     norm,
		deviceID: deviceID,
		now:      time.Now,
		onUpdate: onUpdate,
		view:     Placeholder(norm, deviceID),
	}
}

func (c *Controller) DeviceID() string {
	return c.deviceID
}

// Select resolves preset and starts its fetch in the background, cancelling
// any fetch still in flight. An invalid window is returned right away and no
// fetch is started; the current view stays as it is.
func (c *Controller) Select(ctx context.Context, preset window.Preset) (uint64, error) {
	w, err := c.resolver.Resolve(preset, c.now())
	if err != nil {
		return 0, err
	}

	fetchCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.view.Loading = true
	c.view.Generation = gen
	c.mu.Unlock()

	c.log.Debug("fetch issued",
		slog.String("device_id", c.deviceID),
		slog.String("preset", preset.String()),
		slog.Uint64("generation", gen),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		raw, err := c.fetcher.Fetch(fetchCtx, c.deviceID, w)
		if err != nil {
			c.log.Warn("fetch failed",
				slog.String("device_id", c.deviceID),
				slog.Uint64("generation", gen),
				sl.Err(err),
			)
		}

		c.apply(gen, Build(c.norm, c.deviceID, preset, w, raw, err))
	}()

	return gen, nil
}

// apply installs v if gen is still the latest generation.
func (c *Controller) apply(gen uint64, v View) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug("stale fetch discarded",
			slog.String("device_id", c.deviceID),
			slog.Uint64("generation", gen),
		)
		return false
	}
	v.Generation = gen
	v.Loading = false
	c.view = v
	c.cancel = nil
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(v)
	}
	return true
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Wait blocks until every issued fetch has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the in-flight fetch and waits for it. Results arriving after
// Close are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.mu.Unlock()

	c.wg.Wait()
}
