package ui

import (
	"bytes"
	"fmt"

	"survivaldash/internal/errors"
	"survivaldash/ports"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	perishedColor = drawing.ColorFromHex("c0392b")
	survivedColor = drawing.ColorFromHex("27ae60")
)

// outcomeLabel names a SURVIVED group key for the chart axis.
func outcomeLabel(key any) string {
	switch fmt.Sprint(key) {
	case "0":
		return "Perished (0)"
	case "1":
		return "Survived (1)"
	}
	return fmt.Sprint(key)
}

// renderOutcomeChart draws the group counts as an SVG bar chart.
func renderOutcomeChart(groups []ports.GroupCount) ([]byte, error) {
	if len(groups) == 0 {
		return nil, errors.NotFound("rows for chart")
	}

	var top float64
	bars := make([]chart.Value, 0, len(groups))
	for _, g := range groups {
		color := perishedColor
		if fmt.Sprint(g.Key) == "1" {
			color = survivedColor
		}
		v := float64(g.Count)
		if v > top {
			top = v
		}
		bars = append(bars, chart.Value{
			Label: outcomeLabel(g.Key),
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if top == 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:      "Passengers by outcome",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Width:      640,
		Height:     400,
		BarWidth:   120,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, errors.Wrap(err, "failed to render chart")
	}
	return buf.Bytes(), nil
}
