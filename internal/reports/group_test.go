package reports

import (
	"testing"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayMonth(t *testing.T) {
	tests := []struct {
		created time.Time
		want    time.Time
	}{
		{time.Date(2025, 9, 19, 10, 0, 0, 0, time.UTC), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayMonth(tt.created))
	}
}

func TestGroupByMonth(t *testing.T) {
	list := []Report{
		{ID: "a", CreatedAt: timestamp.FromString("2025-09-02T08:00:00Z")},
		{ID: "b", CreatedAt: timestamp.FromString("2025-07-15T08:00:00Z")},
		{ID: "c", CreatedAt: timestamp.FromString("20.09.2025, 09:00")},
		{ID: "d", CreatedAt: timestamp.FromString("whenever")},
		{ID: "e", CreatedAt: timestamp.FromNumber(float64(time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC).Unix()))},
	}

	groups := GroupByMonth(list, nil)
	require.Len(t, groups, 4)

	assert.Equal(t, "08-2025", groups[0].Label)
	assert.Equal(t, []string{"a", "c"}, ids(groups[0].Reports))
	assert.Equal(t, "07-2025", groups[1].Label)
	assert.Equal(t, []string{"e"}, ids(groups[1].Reports))
	assert.Equal(t, "06-2025", groups[2].Label)
	assert.Equal(t, []string{"b"}, ids(groups[2].Reports))
	assert.Equal(t, timestamp.Placeholder, groups[3].Label)
	assert.Equal(t, []string{"d"}, ids(groups[3].Reports))
}

func TestGroupByMonth_Empty(t *testing.T) {
	assert.Empty(t, GroupByMonth(nil, nil))
}

func ids(list []Report) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}
