// Package window maps a filter preset to the concrete time range that is
// queried upstream.
package window

import (
	"errors"
	"fmt"
	"time"
)

// WireLayout is the upstream query encoding. The '+' is a literal separator.
const WireLayout = "2006-01-02+15:04:05"

// ErrInvalidWindow is returned for ranges that must be rejected before any
// fetch is attempted.
var ErrInvalidWindow = errors.New("invalid time window")

// TimeWindow is a [Start, End) range. Only Resolver builds one.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) Encode() (string, string) {
	return w.Start.Format(WireLayout), w.End.Format(WireLayout)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

type Resolver struct {
	firstCall time.Time
	loc       *time.Location
}

// NewResolver takes the instant of the first recorded call, used by
// SinceFirstCall, and the location calendar years are cut in.
func NewResolver(firstCall time.Time, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{firstCall: firstCall, loc: loc}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) Resolve(p Preset, now time.Time) (TimeWindow, error) {
	now = now.In(r.loc)

	switch p.Kind {
	case Last7Days:
		return TimeWindow{Start: now.AddDate(0, 0, -7), End: now}, nil
	case Last183Days:
		return TimeWindow{Start: now.AddDate(0, 0, -183), End: now}, nil
	case Last365Days:
		return TimeWindow{Start: now.AddDate(0, 0, -365), End: now}, nil
	case SinceFirstCall:
		start := r.firstCall.In(r.loc)
		if start.After(now) {
			return TimeWindow{}, fmt.Errorf("%w: first call %s is after now", ErrInvalidWindow, start.Format(time.RFC3339))
		}
		return TimeWindow{Start: start, End: now}, nil
	case CalendarYear:
		return r.year(p.Year, now)
	case Custom:
		return custom(p.Start, p.End, r.loc)
	default:
		return TimeWindow{}, fmt.Errorf("%w: unknown preset %s", ErrInvalidWindow, p.Kind)
	}
}

func (r *Resolver) year(y int, now time.Time) (TimeWindow, error) {
	if y < 1 {
		return TimeWindow{}, fmt.Errorf("%w: year %d", ErrInvalidWindow, y)
	}

	start := time.Date(y, time.January, 1, 0, 0, 0, 0, r.loc)
	end := time.Date(y, time.December, 31, 23, 59, 59, 0, r.loc)
	if y == now.Year() {
		end = now
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Custom ranges are never swapped: start after end is an error.
func custom(start, end time.Time, loc *time.Location) (TimeWindow, error) {
	if start.IsZero() || end.IsZero() {
		return TimeWindow{}, fmt.Errorf("%w: custom range needs both bounds", ErrInvalidWindow)
	}
	if start.After(end) {
		return TimeWindow{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeWindow{Start: start.In(loc), End: end.In(loc)}, nil
}
