// Package charts renders analytics read models as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"finledger/internal/core"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

const (
	width  = 1200
	height = 600
)

var background = chart.Style{
	Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
	FillColor: chart.ColorWhite,
}

func moneyFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

// HistoryChart plots monthly spending against the budgeted total.
func HistoryChart(points []core.HistoryPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	xs := make([]float64, len(points))
	spending := make([]float64, len(points))
	budget := make([]float64, len(points))
	ticks := make([]chart.Tick, len(points))
	top := 0.0
	for i, p := range points {
		xs[i] = float64(i)
		spending[i] = p.Spending.Float()
		budget[i] = p.Budget.Float()
		ticks[i] = chart.Tick{Value: float64(i), Label: p.MonthLabel}
		top = maxFloat(top, spending[i], budget[i])
	}
	if top == 0 {
		top = 1
	}

	graph := chart.Chart{
		Width:      width,
		Height:     height,
		Background: background,
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: maxFloat(1, float64(len(points)-1))},
			Style: chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		},
		YAxis: chart.YAxis{
			ValueFormatter: moneyFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			Style:          chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Spending",
				XValues: xs,
				YValues: spending,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 3,
				},
			},
			chart.ContinuousSeries{
				Name:    "Budget",
				XValues: xs,
				YValues: budget,
				Style: chart.Style{
					StrokeColor:     chart.ColorBlue,
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{FontSize: 12, FontColor: chart.ColorBlack}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render history chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// CategoryPie renders the expense breakdown, one slice per category in the
// category's own color.
func CategoryPie(totals []core.CategoryTotal) ([]byte, error) {
	var sum int64
	for _, t := range totals {
		sum += t.Total.Cents
	}
	if sum <= 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		if t.Total.Cents <= 0 {
			continue
		}
		share := float64(t.Total.Cents) * 100 / float64(sum)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s (%.1f%%)", t.Name, t.Total, share),
			Value: t.Total.Float(),
			Style: chart.Style{
				FillColor:   hexColor(t.Color),
				StrokeColor: chart.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	pie := chart.PieChart{
		Width:      width,
		Height:     height,
		Values:     values,
		Background: background,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render category pie: %w", err)
	}
	return buffer.Bytes(), nil
}

func hexColor(s string) drawing.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 3 {
		s = strings.TrimPrefix(core.DefaultColor, "#")
	}
	return drawing.ColorFromHex(s)
}

func maxFloat(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
