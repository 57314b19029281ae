package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/config"
	"github.com/speedwagon-io/xrgimon/internal/history"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

const cleanupInterval = 30 * time.Minute

// Refresh describes one rebuilt history.
type Refresh struct {
	Key       string            `json:"key"`
	Count     int               `json:"count"`
	Selection history.Selection `json:"selection"`
	At        time.Time         `json:"at"`
}

// Manager polls the event log and rebuilds one snapshot history per tracked
// "<deviceId>#<metricKind>" key.
type Manager struct {
	log      *slog.Logger
	polling  config.PollingConfig
	source   EventSource
	schedule *pollSchedule
	keys     []string
	trackers map[string]*history.Tracker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.RWMutex
	onRefresh func(Refresh)
	lastErr   error
	lastPoll  time.Time
	nextPoll  time.Duration
}

func NewManager(
	log *slog.Logger,
	cfg *config.Config,
	fleet *config.FleetConfig,
	source EventSource,
	norm *timestamp.Normalizer,
) *Manager {
	keys := fleet.Keys()
	trackers := make(map[string]*history.Tracker, len(keys))
	for _, key := range keys {
		trackers[key] = history.NewTracker(key, cfg.Polling.Capacity, norm)
	}

	return &Manager{
		log:      log,
		polling:  cfg.Polling,
		source:   source,
		schedule: newPollSchedule(cfg.Polling),
		keys:     keys,
		trackers: trackers,
		stopCh:   make(chan struct{}),
	}
}

// OnRefresh registers fn to be called after every rebuilt history.
func (m *Manager) OnRefresh(fn func(Refresh)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}

func (m *Manager) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Manager) Tracker(key string) (*history.Tracker, bool) {
	t, ok := m.trackers[key]
	return t, ok
}

// Start blocks until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.log.Info("starting history manager",
		slog.String("source", m.source.Name()),
		slog.Int("keys", len(m.keys)),
		slog.Duration("interval", m.polling.Interval),
	)

	if cleaner, ok := m.source.(Cleaner); ok {
		m.wg.Add(1)
		go m.cleanupLoop(ctx, cleaner)
	}

	timer := time.NewTimer(m.pollOnce(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("context cancelled, stopping manager")
			return
		case <-m.stopCh:
			m.log.Info("stop signal received, stopping manager")
			return
		case <-timer.C:
			timer.Reset(m.pollOnce(ctx))
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		if err := m.source.Close(); err != nil {
			m.log.Error("failed to close event source", sl.Err(err))
		}
	})
}

// pollOnce runs Poll and returns how long to wait before the next one.
func (m *Manager) pollOnce(ctx context.Context) time.Duration {
	err := m.Poll(ctx)

	m.mu.RLock()
	delay := m.nextPoll
	failures := m.schedule.failures
	m.mu.RUnlock()

	if err != nil {
		m.log.Error("failed to refresh histories",
			slog.Int("failures", failures),
			slog.Duration("retry_in", delay),
			sl.Err(err),
		)
	}
	return delay
}

// Poll reads the whole event log once and replaces every tracked history.
func (m *Manager) Poll(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, m.polling.Timeout)
	defer cancel()

	records, err := m.source.Records(pollCtx)
	if err != nil {
		m.mu.Lock()
		m.nextPoll = m.schedule.failed()
		m.lastErr = err
		m.mu.Unlock()
		return fmt.Errorf("failed to read event log: %w", err)
	}

	m.mu.Lock()
	m.nextPoll = m.schedule.succeeded()
	m.lastErr = nil
	m.lastPoll = time.Now().UTC()
	notify := m.onRefresh
	m.mu.Unlock()

	for _, key := range m.keys {
		tracker := m.trackers[key]
		sel := tracker.Refresh(records)
		n := tracker.History().Len()

		m.log.Debug("history rebuilt",
			slog.String("key", key),
			slog.Int("snapshots", n),
			slog.Int("offset", sel.Offset),
		)

		if notify != nil {
			notify(Refresh{Key: key, Count: n, Selection: sel, At: time.Now().UTC()})
		}
	}

	return nil
}

// Health reports the error of the last poll, if it failed.
func (m *Manager) Health(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastErr != nil {
		return fmt.Errorf("event log unavailable after %d attempts: %w", m.schedule.failures, m.lastErr)
	}
	return nil
}

func (m *Manager) cleanupLoop(ctx context.Context, cleaner Cleaner) {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if err := cleaner.Cleanup(ctx); err != nil {
				m.log.Error("failed to cleanup event log", sl.Err(err))
			}
		}
	}
}
