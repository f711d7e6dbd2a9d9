// Package chart renders an HTML profile page for a retained track:
// altitude over time and ground speed over time.
package chart

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/blackbox-data/csv2kml/internal/geo"
	"github.com/blackbox-data/csv2kml/internal/telemetry"
	"github.com/blackbox-data/csv2kml/internal/units"
)

// Render produces the profile page for the retained points. Timestamps
// are plotted as seconds since the first point. Points without altitude
// are left out of the altitude chart; a track with no altitude column
// still gets a speed chart.
func Render(points []telemetry.Point) ([]byte, error) {
	page := components.NewPage()
	page.PageTitle = "Flight profile"

	if alt := altitudeChart(points); alt != nil {
		page.AddCharts(alt)
	}
	if speed := speedChart(points); speed != nil {
		page.AddCharts(speed)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering profile chart: %w", err)
	}
	return buf.Bytes(), nil
}

func altitudeChart(points []telemetry.Point) *charts.Line {
	if len(points) == 0 {
		return nil
	}
	t0 := points[0].Timestamp
	xs := make([]string, 0, len(points))
	ys := make([]opts.LineData, 0, len(points))
	for i := range points {
		if !points[i].HasAlt {
			continue
		}
		xs = append(xs, fmt.Sprintf("%.1f", units.MillisToSeconds(points[i].Timestamp-t0)))
		ys = append(ys, opts.LineData{Value: points[i].Alt})
	}
	if len(ys) == 0 {
		return nil
	}

	line := newProfileLine("Altitude", "meters over elapsed seconds", "m")
	line.SetXAxis(xs).AddSeries("altitude", ys)
	return line
}

func speedChart(points []telemetry.Point) *charts.Line {
	if len(points) < 2 {
		return nil
	}
	t0 := points[0].Timestamp
	xs := make([]string, 0, len(points)-1)
	ys := make([]opts.LineData, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		dt := units.MillisToSeconds(points[i].Timestamp - points[i-1].Timestamp)
		if dt <= 0 {
			continue
		}
		dist := geo.HaversineM(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		xs = append(xs, fmt.Sprintf("%.1f", units.MillisToSeconds(points[i].Timestamp-t0)))
		ys = append(ys, opts.LineData{Value: units.ConvertSpeed(dist/dt, units.KPH)})
	}
	if len(ys) == 0 {
		return nil
	}

	line := newProfileLine("Ground speed", "km/h over elapsed seconds", "km/h")
	line.SetXAxis(xs).AddSeries("speed", ys)
	return line
}

func newProfileLine(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	return line
}
