package collector

import (
	"math/rand"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/config"
)

const (
	backoffFactor = 2.0
	backoffJitter = 0.1
)

// pollSchedule decides when the next event-log poll runs. A healthy log is
// polled every interval; each consecutive failure doubles the wait, up to
// maxBackoff. Callers serialize access.
type pollSchedule struct {
	interval   time.Duration
	maxBackoff time.Duration
	random     func() float64

	failures int
}

func newPollSchedule(cfg config.PollingConfig) *pollSchedule {
	maxBackoff := cfg.MaxBackoff
	if maxBackoff < cfg.Interval {
		maxBackoff = cfg.Interval
	}
	return &pollSchedule{
		interval:   cfg.Interval,
		maxBackoff: maxBackoff,
		random:     rand.Float64,
	}
}

// succeeded clears the failure streak and returns the regular interval.
func (s *pollSchedule) succeeded() time.Duration {
	s.failures = 0
	return s.interval
}

// failed extends the failure streak and returns the wait before retrying.
func (s *pollSchedule) failed() time.Duration {
	s.failures++

	delay := float64(s.interval)
	for i := 0; i < s.failures && delay < float64(s.maxBackoff); i++ {
		delay *= backoffFactor
	}
	if delay > float64(s.maxBackoff) {
		delay = float64(s.maxBackoff)
	}

	delay += delay * backoffJitter * (2*s.random() - 1)
	if delay > float64(s.maxBackoff) {
		delay = float64(s.maxBackoff)
	}

	return time.Duration(delay)
}
