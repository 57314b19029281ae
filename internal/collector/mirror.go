package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/model"
)

// LocalLog is the writable copy a Mirror keeps.
type LocalLog interface {
	EventSource
	Cleaner
	Append(ctx context.Context, rec *model.EventRecord) error
}

// Mirror copies the upstream event log into a local one on every read and
// serves the local copy. An upstream failure is logged and the local copy is
// served unchanged.
type Mirror struct {
	log      *slog.Logger
	upstream EventSource
	local    LocalLog
}

func NewMirror(log *slog.Logger, upstream EventSource, local LocalLog) *Mirror {
	return &Mirror{
		log:      log,
		upstream: upstream,
		local:    local,
	}
}

func (m *Mirror) Name() string {
	return fmt.Sprintf("mirror(%s->%s)", m.upstream.Name(), m.local.Name())
}

func (m *Mirror) Records(ctx context.Context) ([]model.EventRecord, error) {
	records, err := m.upstream.Records(ctx)
	if err != nil {
		m.log.Warn("upstream event log unavailable, serving local copy", sl.Err(err))
		return m.local.Records(ctx)
	}

	seen := make(map[string]int)
	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			rec.ID = contentID(rec, seen)
		}
		if err := m.local.Append(ctx, &rec); err != nil {
			return nil, fmt.Errorf("failed to mirror event %s: %w", rec.ID, err)
		}
	}

	m.log.Debug("event log mirrored", slog.Int("records", len(records)))

	return m.local.Records(ctx)
}

// contentID names a row that arrived without an id. Rows equal in key,
// timestamp and value are told apart by how many came before them in the
// batch, so the same batch maps to the same ids on every poll.
func contentID(rec model.EventRecord, seen map[string]int) string {
	sum := sha256.Sum256(rec.Value)
	base := rec.Key + "@" + rec.Timestamp.String() + "#" + hex.EncodeToString(sum[:8])

	n := seen[base]
	seen[base] = n + 1

	return base + "#" + strconv.Itoa(n)
}

func (m *Mirror) Cleanup(ctx context.Context) error {
	return m.local.Cleanup(ctx)
}

func (m *Mirror) Close() error {
	return errors.Join(m.upstream.Close(), m.local.Close())
}
