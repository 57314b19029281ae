// Package dashboard turns a filter selection into the cards and chart shown
// for one device, and makes sure only the latest selection reaches the screen.
package dashboard

import (
	"time"

	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

type View struct {
	DeviceID   string             `json:"device_id"`
	Preset     string             `json:"preset"`
	Start      string             `json:"start,omitempty"`
	End        string             `json:"end,omitempty"`
	Cards      []model.MetricCard `json:"cards"`
	Chart      model.ChartSeries  `json:"chart"`
	Generation uint64             `json:"generation"`
	FetchError string             `json:"fetch_error,omitempty"`
	Loading    bool               `json:"loading"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Build is the pure part of a refresh. A fetch error is rendered as the
// no-data branch plus its message.
func Build(norm *display.Normalizer, deviceID string, preset window.Preset, w window.TimeWindow, raw model.Telemetry, fetchErr error) View {
	if fetchErr != nil {
		raw = nil
	}

	start, end := w.Encode()
	v := View{
		DeviceID:  deviceID,
		Preset:    preset.String(),
		Start:     start,
		End:       end,
		Cards:     norm.Cards(raw),
		Chart:     display.Chart(raw),
		UpdatedAt: time.Now().UTC(),
	}
	if fetchErr != nil {
		v.FetchError = fetchErr.Error()
	}
	return v
}

// Placeholder is what a device shows before its first fetch completes.
func Placeholder(norm *display.Normalizer, deviceID string) View {
	return View{
		DeviceID:  deviceID,
		Cards:     norm.Cards(nil),
		Chart:     display.Chart(nil),
		UpdatedAt: time.Now().UTC(),
	}
}
