package chart

import (
	"bytes"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// RenderOptions sizes the rendered image
type RenderOptions struct {
	Width    int
	Height   int
	Title    string
	Currency string // symbol prefix for the value axis
}

// Render draws invested value (solid) and cost basis (dashed) as a PNG.
// Returns raw PNG bytes.
func Render(points []models.ChartDataPoint, opts RenderOptions) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}
	if opts.Width <= 0 {
		opts.Width = 900
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}
	if opts.Title == "" {
		opts.Title = "Portfolio Value"
	}

	xValues := make([]time.Time, len(points))
	valueY := make([]float64, len(points))
	costY := make([]float64, len(points))
	for i, p := range points {
		d := common.ParseDate(p.Date)
		if d.IsZero() {
			return nil, fmt.Errorf("invalid data point date %q", p.Date)
		}
		xValues[i] = d
		valueY[i] = p.InvestedValue
		costY[i] = p.CostBasis
	}

	graph := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: gochart.XAxis{
			TickPosition: gochart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return gochart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%s%.1fk", opts.Currency, f/1000)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name: "Invested Value",
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("0f766e"),
					StrokeWidth: 2.5,
				},
				XValues: xValues,
				YValues: valueY,
			},
			gochart.TimeSeries{
				Name: "Cost Basis",
				Style: gochart.Style{
					StrokeColor:     drawing.ColorFromHex("9ca3af"),
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5.0, 3.0},
				},
				XValues: xValues,
				YValues: costY,
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
