// Package history keeps the last few full-state snapshots of a device so a
// user can step back through recent polling cycles.
package history

import (
	"sort"

	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

const DefaultCapacity = 6

// History is an immutable, newest-first buffer of at most Capacity snapshots.
type History struct {
	Capacity int
	Buffer   []model.Snapshot
}

func (h History) Len() int {
	return len(h.Buffer)
}

// Rebuild derives a fresh History from the full event log. Rows with another
// key or an unparseable timestamp are skipped. Equal timestamps keep their
// input order.
func Rebuild(records []model.EventRecord, compositeKey string, capacity int, norm *timestamp.Normalizer) History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if norm == nil {
		norm = timestamp.New(nil)
	}

	snapshots := make([]model.Snapshot, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Key != compositeKey {
			continue
		}

		at, err := norm.Normalize(rec.Timestamp)
		if err != nil {
			continue
		}

		snapshots = append(snapshots, model.Snapshot{
			At:      at,
			Payload: append([]byte(nil), rec.Value...),
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].At.After(snapshots[j].At)
	})

	if len(snapshots) > capacity {
		snapshots = snapshots[:capacity:capacity]
	}

	return History{Capacity: capacity, Buffer: snapshots}
}
