package telemetry

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/blackbox-data/csv2kml/internal/geo"
	"github.com/blackbox-data/csv2kml/internal/units"
)

// Summary aggregates a retained track for the document description.
type Summary struct {
	Points      int
	DurationMs  float64
	DistanceM   float64
	AvgSpeedMps float64

	// Altitude stats in meters; valid only if HasAlt.
	HasAlt  bool
	AltMin  float64
	AltMax  float64
	AltMean float64

	// Transitions counts flight-state changes between consecutive
	// retained points.
	Transitions int
}

// Summarize computes track statistics over the retained points.
func Summarize(points []Point) Summary {
	sum := Summary{Points: len(points)}
	if len(points) == 0 {
		return sum
	}

	sum.DurationMs = points[len(points)-1].Timestamp - points[0].Timestamp

	alts := make([]float64, 0, len(points))
	for i := range points {
		if points[i].HasAlt {
			alts = append(alts, points[i].Alt)
		}
		if i == 0 {
			continue
		}
		sum.DistanceM += geo.HaversineM(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if points[i].State != points[i-1].State {
			sum.Transitions++
		}
	}

	if secs := units.MillisToSeconds(sum.DurationMs); secs > 0 {
		sum.AvgSpeedMps = sum.DistanceM / secs
	}
	if len(alts) > 0 {
		sum.HasAlt = true
		sum.AltMin = floats.Min(alts)
		sum.AltMax = floats.Max(alts)
		sum.AltMean = stat.Mean(alts, nil)
	}
	return sum
}

// Describe renders the summary as the human-readable text used in the
// track placemark description.
func (s Summary) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d points, %.1fs, %.0fm ground distance", s.Points, units.MillisToSeconds(s.DurationMs), s.DistanceM)
	if s.AvgSpeedMps > 0 {
		fmt.Fprintf(&b, ", avg %.1f km/h", units.ConvertSpeed(s.AvgSpeedMps, units.KPH))
	}
	if s.HasAlt {
		fmt.Fprintf(&b, ", altitude %.0f-%.0fm (mean %.0fm)", s.AltMin, s.AltMax, s.AltMean)
	}
	return b.String()
}
