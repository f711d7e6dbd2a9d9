// Package telemetry turns raw flight-log CSV rows into typed geospatial
// points and decimates them by time threshold and flight-state changes.
package telemetry

import (
	"fmt"
	"strconv"

	"github.com/blackbox-data/csv2kml/internal/fieldmap"
)

// Point is one retained telemetry sample. Constructed once per accepted
// CSV row and never mutated afterwards.
type Point struct {
	// Row is the 1-based data row number in the source CSV, header
	// excluded. Used for labels and warnings.
	Row int

	// Tick is the recorder's own sample label, when a tick column is
	// mapped. Kept as a string; firmware tick formats vary.
	Tick string

	Lat float64
	Lon float64

	// Alt is the recorded altitude in meters. Valid only if HasAlt.
	Alt    float64
	HasAlt bool

	// Timestamp is the GPS timestamp in milliseconds, as recorded.
	Timestamp float64

	// State is the flight state string, empty when no state column is
	// mapped or the column is blank.
	State string
}

// Name returns the label to display for this point: the recorder tick if
// one is mapped, otherwise the row number.
func (p *Point) Name() string {
	if p.Tick != "" {
		return p.Tick
	}
	return strconv.Itoa(p.Row)
}

// parsePoint extracts a Point from one CSV row using the bound field map.
// It returns an error for rows that must be skipped: short rows, blank or
// malformed required fields, and 0.0/0.0 coordinate pairs, which the
// recorder emits before GPS lock.
func parsePoint(m *fieldmap.Map, row int, fields []string) (Point, error) {
	p := Point{Row: row}

	need := m.Latitude
	for _, idx := range []int{m.Longitude, m.Timestamp, m.Altitude, m.State, m.Tick} {
		if idx > need {
			need = idx
		}
	}
	if need >= len(fields) {
		return p, fmt.Errorf("row has %d columns, need %d", len(fields), need+1)
	}

	var err error
	if p.Lat, err = parseFloatField("latitude", fields[m.Latitude]); err != nil {
		return p, err
	}
	if p.Lon, err = parseFloatField("longitude", fields[m.Longitude]); err != nil {
		return p, err
	}
	if p.Timestamp, err = parseFloatField("timestamp", fields[m.Timestamp]); err != nil {
		return p, err
	}
	if p.Lat == 0 && p.Lon == 0 {
		return p, fmt.Errorf("0.0/0.0 coordinates, no GPS lock")
	}

	if m.HasAltitude() {
		// Altitude is optional; a blank or malformed value degrades the
		// point to no-altitude rather than skipping the row.
		if alt, err := strconv.ParseFloat(fields[m.Altitude], 64); err == nil {
			p.Alt = alt
			p.HasAlt = true
		}
	}
	if m.HasState() {
		p.State = fields[m.State]
	}
	if m.HasTick() {
		p.Tick = fields[m.Tick]
	}
	return p, nil
}

func parseFloatField(name, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty %s", name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, value)
	}
	return v, nil
}
