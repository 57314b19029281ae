package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

var ErrOutOfRange = errors.New("snapshot offset out of range")

// Select returns the snapshot offset steps back from the newest one.
func Select(h History, offset int) (model.Snapshot, error) {
	if offset < 0 || offset >= len(h.Buffer) {
		return model.Snapshot{}, fmt.Errorf("%w: offset %d, have %d", ErrOutOfRange, offset, len(h.Buffer))
	}
	return h.Buffer[offset], nil
}

// Selection is the SelectionState. Selected stays false until the first
// non-empty rebuild.
type Selection struct {
	Selected bool `json:"selected"`
	Offset   int  `json:"offset"`
}

type View struct {
	Snapshot  model.Snapshot `json:"snapshot"`
	Display   string         `json:"display"`
	Offset    int            `json:"offset"`
	Total     int            `json:"total"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Tracker owns the History of one composite key. Replace is the single
// writer; readers see either the previous buffer or the new one.
type Tracker struct {
	key  string
	norm *timestamp.Normalizer

	mu        sync.RWMutex
	history   History
	selection Selection
	updatedAt time.Time
}

func NewTracker(key string, capacity int, norm *timestamp.Normalizer) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if norm == nil {
		norm = timestamp.New(nil)
	}
	return &Tracker{
		key:     key,
		norm:    norm,
		history: History{Capacity: capacity},
	}
}

func (t *Tracker) Key() string {
	return t.key
}

func (t *Tracker) Capacity() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history.Capacity
}

// Refresh rebuilds the buffer from records and swaps it in.
func (t *Tracker) Refresh(records []model.EventRecord) Selection {
	h := Rebuild(records, t.key, t.Capacity(), t.norm)
	return t.Replace(h)
}

// Replace installs h wholesale. An offset that still fits is kept, otherwise
// the selection falls back to the newest snapshot.
func (t *Tracker) Replace(h History) Selection {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = h
	t.updatedAt = time.Now().UTC()

	switch {
	case h.Len() == 0:
		if t.selection.Selected {
			t.selection = Selection{Selected: true, Offset: 0}
		}
	case !t.selection.Selected:
		t.selection = Selection{Selected: true, Offset: 0}
	case t.selection.Offset >= h.Len():
		t.selection.Offset = 0
	}

	return t.selection
}

func (t *Tracker) History() History {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history
}

func (t *Tracker) Selection() Selection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection
}

// Select moves the selection. The offset is checked against the buffer
// installed right now, not the one it was chosen from.
func (t *Tracker) Select(offset int) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := Select(t.history, offset)
	if err != nil {
		return View{}, err
	}
	t.selection = Selection{Selected: true, Offset: offset}

	return t.viewLocked(snap, offset), nil
}

// Current returns the selected snapshot. A stale offset is clamped to the
// newest snapshot; ErrOutOfRange only means the buffer is empty.
func (t *Tracker) Current() (View, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	offset := t.selection.Offset
	if offset >= t.history.Len() {
		offset = 0
	}

	snap, err := Select(t.history, offset)
	if err != nil {
		return View{}, err
	}

	return t.viewLocked(snap, offset), nil
}

func (t *Tracker) viewLocked(snap model.Snapshot, offset int) View {
	return View{
		Snapshot:  snap,
		Display:   t.norm.FormatTime(snap.At),
		Offset:    offset,
		Total:     t.history.Len(),
		UpdatedAt: t.updatedAt,
	}
}
