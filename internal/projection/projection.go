package projection

import (
	"fraud-monitor/internal/aggregator"
	"fraud-monitor/internal/record"
)

// Series labels rendered by the chart.
const (
	LabelHighRisk = "High Risk"
	LabelLowRisk  = "Low Risk"
)

// Point is a single chart bar.
type Point struct {
	Label string `json:"name"`
	Value int    `json:"value"`
}

// View is the render-ready shape handed to presentation adapters.
type View struct {
	Series   []Point              `json:"series"`
	Records  []record.FraudRecord `json:"records"`
	HighRisk int                  `json:"highRisk"`
	LowRisk  int                  `json:"lowRisk"`
	Total    int                  `json:"total"`
	Visible  int                  `json:"visible"`
}

// Project maps aggregate state to a View. It has no side effects and never aliases
// the input slice.
func Project(state aggregator.State) View {
	records := make([]record.FraudRecord, len(state.Records))
	copy(records, state.Records)

	return View{
		Series: []Point{
			{Label: LabelHighRisk, Value: state.HighRisk},
			{Label: LabelLowRisk, Value: state.LowRisk},
		},
		Records:  records,
		HighRisk: state.HighRisk,
		LowRisk:  state.LowRisk,
		Total:    state.HighRisk + state.LowRisk,
		Visible:  len(records),
	}
}
