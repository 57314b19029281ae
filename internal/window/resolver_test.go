package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var firstCall = time.Date(2012, 3, 1, 8, 0, 0, 0, time.UTC)

func TestResolve_Last7Days(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)

	w, err := r.Resolve(Preset{Kind: Last7Days}, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, now, w.End)
}

func TestResolve_RollingPresets(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 13, 45, 10, 0, time.UTC)

	tests := []struct {
		kind Kind
		days int
	}{
		{Last7Days, 7},
		{Last183Days, 183},
		{Last365Days, 365},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			w, err := r.Resolve(Preset{Kind: tt.kind}, now)
			require.NoError(t, err)
			assert.Equal(t, now, w.End)
			assert.Equal(t, now.AddDate(0, 0, -tt.days), w.Start)
			assert.False(t, w.Start.After(w.End))
		})
	}
}

func TestResolve_SinceFirstCall(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)

	w, err := r.Resolve(Preset{Kind: SinceFirstCall}, now)
	require.NoError(t, err)
	assert.Equal(t, firstCall, w.Start)
	assert.Equal(t, now, w.End)

	_, err = r.Resolve(Preset{Kind: SinceFirstCall}, firstCall.Add(-time.Hour))
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestResolve_CalendarYear(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 10, 0, 0, 0, time.UTC)

	t.Run("past year", func(t *testing.T) {
		w, err := r.Resolve(Year(2023), now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
		assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), w.End)
	})

	t.Run("current year ends now", func(t *testing.T) {
		w, err := r.Resolve(Year(2025), now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
		assert.Equal(t, now, w.End)
	})

	t.Run("invalid year", func(t *testing.T) {
		_, err := r.Resolve(Year(0), now)
		assert.True(t, errors.Is(err, ErrInvalidWindow))
	})
}

func TestResolve_Custom(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)
	s := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	w, err := r.Resolve(Range(s, e), now)
	require.NoError(t, err)
	assert.Equal(t, s, w.Start)
	assert.Equal(t, e, w.End)

	w, err = r.Resolve(Range(s, s), now)
	require.NoError(t, err)
	assert.Equal(t, w.Start, w.End)

	_, err = r.Resolve(Range(e, s), now)
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	_, err = r.Resolve(Range(time.Time{}, e), now)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestTimeWindow_Encode(t *testing.T) {
	r := NewResolver(firstCall, time.UTC)
	now := time.Date(2025, 9, 19, 7, 5, 3, 0, time.UTC)

	w, err := r.Resolve(Preset{Kind: Last7Days}, now)
	require.NoError(t, err)

	start, end := w.Encode()
	assert.Equal(t, "2025-09-12+07:05:03", start)
	assert.Equal(t, "2025-09-19+07:05:03", end)
}

func TestResolve_UsesResolverLocation(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	r := NewResolver(firstCall, cet)
	now := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)

	// Already 2025 in CET.
	w, err := r.Resolve(Year(2025), now)
	require.NoError(t, err)
	assert.True(t, w.End.Equal(now))

	start, _ := w.Encode()
	assert.Equal(t, "2025-01-01+00:00:00", start)
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		name    string
		preset  string
		year    string
		start   string
		end     string
		want    Preset
		wantErr bool
	}{
		{name: "default", preset: "", want: Preset{Kind: Last7Days}},
		{name: "183 days", preset: "last183days", want: Preset{Kind: Last183Days}},
		{name: "365 days", preset: "365d", want: Preset{Kind: Last365Days}},
		{name: "all", preset: "since_first_call", want: Preset{Kind: SinceFirstCall}},
		{name: "year", preset: "year", year: "2024", want: Year(2024)},
		{name: "bad year", preset: "year", year: "twenty", wantErr: true},
		{
			name:   "custom",
			preset: "custom",
			start:  "2025-01-01",
			end:    "2025-02-01T12:00:00Z",
			want: Range(
				time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
			),
		},
		{name: "custom bad start", preset: "custom", start: "x", end: "2025-01-01", wantErr: true},
		{name: "unknown", preset: "fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePreset(tt.preset, tt.year, tt.start, tt.end, time.UTC)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidWindow), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Year, got.Year)
			assert.True(t, tt.want.Start.Equal(got.Start))
			assert.True(t, tt.want.End.Equal(got.End))
		})
	}
}
