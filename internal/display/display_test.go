package display

import (
	"testing"

	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardByLabel(t *testing.T, cards []model.MetricCard, label string) model.MetricCard {
	t.Helper()
	for _, c := range cards {
		if c.Label == label {
			return c
		}
	}
	t.Fatalf("card %q not found", label)
	return model.MetricCard{}
}

func TestCards_Production(t *testing.T) {
	cards := Cards(model.Telemetry{FieldPowerProduction: float64(45000)})
	assert.Equal(t, "45 kWh", cardByLabel(t, cards, "production").Value)

	cards = Cards(model.Telemetry{})
	assert.Equal(t, "0 kWh", cardByLabel(t, cards, "production").Value)
}

func TestCards_TotalOverAnyInput(t *testing.T) {
	inputs := []model.Telemetry{
		nil,
		{},
		{FieldPowerProduction: "garbage", FieldOperationalMinutes: true},
		{FieldLatestCallDate: nil, FieldFirstCallDate: ""},
	}

	for _, in := range inputs {
		cards := Cards(in)
		require.Len(t, cards, CardCount)
		for _, c := range cards {
			assert.NotEmpty(t, c.Value, "card %s", c.Label)
			assert.NotContains(t, c.Value, "NaN")
		}
	}
}

func TestCards_FixedOrder(t *testing.T) {
	cards := Cards(nil)
	labels := make([]string, len(cards))
	for i, c := range cards {
		labels[i] = c.Label
	}

	assert.Equal(t, []string{
		"production", "consumption", "heat", "fuel", "sold",
		"covered_by_xrgi", "covered_by_purchase", "operating_hours",
		"next_service", "latest_call", "latest_service", "first_call",
	}, labels)
}

func TestCards_Energy(t *testing.T) {
	cards := Cards(model.Telemetry{
		FieldPowerConsumption:       float64(1499),
		FieldHeatProduction:         float64(1500),
		FieldFuelConsumption:        "250000",
		FieldPowerCoveredByPurchase: float64(-400),
	})

	assert.Equal(t, "1 kWh", cardByLabel(t, cards, "consumption").Value)
	assert.Equal(t, "2 kWh", cardByLabel(t, cards, "heat").Value)
	assert.Equal(t, "250 kWh", cardByLabel(t, cards, "fuel").Value)
	assert.Equal(t, "0 kWh", cardByLabel(t, cards, "covered_by_purchase").Value)
	assert.Equal(t, UnitEnergy, cardByLabel(t, cards, "sold").Unit)
}

func TestCards_OperatingHours(t *testing.T) {
	tests := []struct {
		name string
		raw  model.Telemetry
		want string
	}{
		{
			name: "both present",
			raw:  model.Telemetry{FieldOperationalMinutes: float64(6000), FieldPossibleMinutes: float64(10110)},
			want: "100 out of 169 hours",
		},
		{
			name: "possible missing",
			raw:  model.Telemetry{FieldOperationalMinutes: float64(6000)},
			want: NoData,
		},
		{
			name: "operational missing",
			raw:  model.Telemetry{FieldPossibleMinutes: float64(6000)},
			want: NoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := cardByLabel(t, Cards(tt.raw), "operating_hours")
			assert.Equal(t, tt.want, card.Value)
			assert.Equal(t, UnitHours, card.Unit)
		})
	}
}

func TestCards_Dates(t *testing.T) {
	cards := Cards(model.Telemetry{
		FieldLatestCallDate:    "9/19/2025, 2:30:15 PM",
		FieldLatestServiceDate: "19.09.2025 14:30",
		FieldFirstCallDate:     float64(1700000000),
	})

	assert.Equal(t, "9/19/2025, 2:30 PM", cardByLabel(t, cards, "latest_call").Value)
	assert.Equal(t, "19.09.2025 14:30", cardByLabel(t, cards, "latest_service").Value)
	assert.Equal(t, "14-11-2023 22:13", cardByLabel(t, cards, "first_call").Value)
	assert.Equal(t, MissingDate, cardByLabel(t, cards, "next_service").Value)
	assert.Empty(t, cardByLabel(t, cards, "next_service").Unit)
}

func TestStripSeconds(t *testing.T) {
	assert.Equal(t, "2:30 PM", StripSeconds("2:30:15 PM"))
	assert.Equal(t, "10:05am", StripSeconds("10:05:59am"))
	assert.Equal(t, "14:30:15", StripSeconds("14:30:15"))
}

func TestChart_ShapeInvariance(t *testing.T) {
	absent := Chart(nil)
	zero := Chart(model.Telemetry{
		FieldPowerProduction:  float64(0),
		FieldPowerConsumption: float64(0),
		FieldHeatProduction:   float64(0),
		FieldPowerSoldEl:      float64(0),
	})

	assert.Equal(t, absent, zero)
	require.Len(t, absent.Legend, len(absent.Series))
	require.Len(t, absent.Labels, len(absent.Series))
	assert.Equal(t, []string{"Production (kWh)", "Consumption (kWh)", "Heat (kWh)", "Sold (kWh)"}, absent.Labels)
	for i, s := range absent.Series {
		assert.Equal(t, absent.Legend[i], s.Label)
		assert.Equal(t, []float64{0}, s.Values)
	}

	present := Chart(model.Telemetry{FieldPowerProduction: float64(45000)})
	assert.Equal(t, absent.Labels, present.Labels)
	assert.Equal(t, absent.Legend, present.Legend)
}

func TestChart_Values(t *testing.T) {
	chart := Chart(model.Telemetry{
		FieldPowerProduction:  float64(45000),
		FieldPowerConsumption: float64(12400),
		FieldHeatProduction:   float64(90600),
		FieldPowerSoldEl:      float64(32500),
	})

	assert.Equal(t, []string{"Production", "Consumption", "Heat", "Sold"}, chart.Legend)
	assert.Equal(t, []float64{45}, chart.Series[0].Values)
	assert.Equal(t, []float64{12}, chart.Series[1].Values)
	assert.Equal(t, []float64{91}, chart.Series[2].Values)
	assert.Equal(t, []float64{33}, chart.Series[3].Values)
}

func TestChart_ColorsByIndex(t *testing.T) {
	a := Chart(nil)
	b := Chart(model.Telemetry{FieldPowerSoldEl: float64(1_000_000)})

	for i := range a.Series {
		assert.Equal(t, Color(i), a.Series[i].Color)
		assert.Equal(t, a.Series[i].Color, b.Series[i].Color)
	}
}
