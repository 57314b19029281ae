package display

import "github.com/speedwagon-io/xrgimon/internal/model"

// Production first, then consumption, then the storage/grid deltas.
var chartFields = []struct {
	legend string
	key    string
}{
	{"Production", FieldPowerProduction},
	{"Consumption", FieldPowerConsumption},
	{"Heat", FieldHeatProduction},
	{"Sold", FieldPowerSoldEl},
}

var palette = []string{"#2E7D32", "#C62828", "#EF6C00", "#1565C0"}

// Points per series. Both branches use it.
const chartPoints = 1

// Color is assigned by series index so it stays stable across refreshes.
func Color(i int) string {
	return palette[i%len(palette)]
}

// Labels is the x axis scaffold: one category per series, so Series[i]
// is drawn at Labels[i].
func Labels() []string {
	labels := make([]string, len(chartFields))
	for i, f := range chartFields {
		labels[i] = f.legend + " (" + UnitEnergy + ")"
	}
	return labels
}

func Legend() []string {
	legend := make([]string, len(chartFields))
	for i, f := range chartFields {
		legend[i] = f.legend
	}
	return legend
}

// Chart builds the overview chart. A nil raw means there is no telemetry yet
// or the fetch failed; the result has exactly the same shape with zeros.
func Chart(raw model.Telemetry) model.ChartSeries {
	chart := model.ChartSeries{
		Labels: Labels(),
		Legend: Legend(),
		Series: make([]model.Series, len(chartFields)),
	}

	for i, f := range chartFields {
		values := make([]float64, chartPoints)
		if raw != nil {
			if wh, ok := raw.Float(f.key); ok {
				values[0] = float64(KWh(wh))
			}
		}
		chart.Series[i] = model.Series{
			Label:  f.legend,
			Color:  Color(i),
			Values: values,
		}
	}

	return chart
}
