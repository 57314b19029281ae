// Package display derives metric cards and chart series from raw telemetry.
// Everything here is pure and total: absent or malformed fields produce
// fallback text, never an error.
package display

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

const (
	UnitEnergy = "kWh"
	UnitHours  = "hours"

	NoData      = "No data"
	MissingDate = "-"
)

// Upstream telemetry field names.
const (
	FieldPowerProduction        = "PowerProduction"
	FieldPowerConsumption       = "PowerConsumption"
	FieldHeatProduction         = "HeatProduction"
	FieldFuelConsumption        = "FuelConsumption"
	FieldPowerSoldEl            = "PowerSoldEl"
	FieldPowerCoveredByXRGI     = "PowerCoveredByXRGI"
	FieldPowerCoveredByPurchase = "PowerCoveredByPurchase"
	FieldOperationalMinutes     = "OperationalMinutes"
	FieldPossibleMinutes        = "PossibleMinutes"
	FieldTimeNextService        = "TimeNextService"
	FieldLatestCallDate         = "LatesCallDate"
	FieldLatestServiceDate      = "LatesServiceDate"
	FieldFirstCallDate          = "FirstCallDate"
)

type fieldKind int

const (
	energyField fieldKind = iota
	durationField
	dateField
)

type cardField struct {
	label     string
	kind      fieldKind
	key       string
	secondary string
}

// One slot per known field, in display order.
var cardFields = []cardField{
	{label: "production", kind: energyField, key: FieldPowerProduction},
	{label: "consumption", kind: energyField, key: FieldPowerConsumption},
	{label: "heat", kind: energyField, key: FieldHeatProduction},
	{label: "fuel", kind: energyField, key: FieldFuelConsumption},
	{label: "sold", kind: energyField, key: FieldPowerSoldEl},
	{label: "covered_by_xrgi", kind: energyField, key: FieldPowerCoveredByXRGI},
	{label: "covered_by_purchase", kind: energyField, key: FieldPowerCoveredByPurchase},
	{label: "operating_hours", kind: durationField, key: FieldOperationalMinutes, secondary: FieldPossibleMinutes},
	{label: "next_service", kind: dateField, key: FieldTimeNextService},
	{label: "latest_call", kind: dateField, key: FieldLatestCallDate},
	{label: "latest_service", kind: dateField, key: FieldLatestServiceDate},
	{label: "first_call", kind: dateField, key: FieldFirstCallDate},
}

// CardCount is the number of cards Cards always returns.
var CardCount = len(cardFields)

type Normalizer struct {
	ts *timestamp.Normalizer
}

func NewNormalizer(ts *timestamp.Normalizer) *Normalizer {
	if ts == nil {
		ts = timestamp.New(nil)
	}
	return &Normalizer{ts: ts}
}

var defaultNormalizer = NewNormalizer(nil)

func Cards(raw model.Telemetry) []model.MetricCard {
	return defaultNormalizer.Cards(raw)
}

// Cards returns one card per known field. A nil map is valid input.
func (n *Normalizer) Cards(raw model.Telemetry) []model.MetricCard {
	cards := make([]model.MetricCard, 0, len(cardFields))

	for _, f := range cardFields {
		switch f.kind {
		case energyField:
			cards = append(cards, model.MetricCard{
				Label: f.label,
				Value: energyValue(raw, f.key),
				Unit:  UnitEnergy,
			})
		case durationField:
			cards = append(cards, model.MetricCard{
				Label: f.label,
				Value: durationValue(raw, f.key, f.secondary),
				Unit:  UnitHours,
			})
		case dateField:
			cards = append(cards, model.MetricCard{
				Label: f.label,
				Value: n.dateValue(raw, f.key),
			})
		}
	}

	return cards
}

// KWh converts a Wh reading to whole kWh.
func KWh(wh float64) int64 {
	if math.IsNaN(wh) || math.IsInf(wh, 0) {
		return 0
	}
	return int64(math.Round(wh / 1000))
}

func energyValue(raw model.Telemetry, key string) string {
	wh, ok := raw.Float(key)
	if !ok {
		return fmt.Sprintf("0 %s", UnitEnergy)
	}
	return fmt.Sprintf("%d %s", KWh(wh), UnitEnergy)
}

func durationValue(raw model.Telemetry, key, secondary string) string {
	operational, ok := raw.Float(key)
	if !ok {
		return NoData
	}
	possible, ok := raw.Float(secondary)
	if !ok {
		return NoData
	}
	return fmt.Sprintf("%d out of %d %s", minutesToHours(operational), minutesToHours(possible), UnitHours)
}

func minutesToHours(minutes float64) int64 {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return int64(math.Round(minutes / 60))
}

// Drops the ":SS" right before an AM/PM marker: "2:30:15 PM" -> "2:30 PM".
var trailingSeconds = regexp.MustCompile(`(\d{1,2}:\d{2}):\d{2}(\s*[AaPp][Mm])`)

func StripSeconds(s string) string {
	return trailingSeconds.ReplaceAllString(s, "$1$2")
}

func (n *Normalizer) dateValue(raw model.Telemetry, key string) string {
	v, ok := raw.Value(key)
	if !ok {
		return MissingDate
	}

	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return MissingDate
		}
		return StripSeconds(val)
	default:
		return n.ts.Format(timestamp.FromAny(val))
	}
}
