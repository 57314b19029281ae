package model

// MetricCard is a display-ready datum. Value is always pre-formatted text so
// missing data shows a defined fallback instead of an empty string.
type MetricCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type Series struct {
	Label  string    `json:"label"`
	Color  string    `json:"color"`
	Values []float64 `json:"values"`
}

// ChartSeries keeps Labels, Legend and Series parallel: Series[i] is drawn
// as Legend[i] at the x position Labels[i].
type ChartSeries struct {
	Labels []string `json:"labels"`
	Legend []string `json:"legend"`
	Series []Series `json:"series"`
}
