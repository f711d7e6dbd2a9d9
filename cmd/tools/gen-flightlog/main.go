// Command gen-flightlog generates sample flight-log CSV files in the
// recorder's default column layout, for testing the converter and demos.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/blackbox-data/csv2kml/internal/fieldmap"
)

func main() {
	output := flag.String("o", "sample_flight.csv", "output path")
	rows := flag.Int("rows", 120, "number of data rows")
	stepMs := flag.Float64("step", 1000, "timestamp spacing in milliseconds")
	flag.Parse()

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("cannot create %s: %v", *output, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header()); err != nil {
		log.Fatalf("writing header: %v", err)
	}

	// A lazy climb-cruise-descend loop over a small area near the origin
	// airfield, with flight states that a state-change run can pick up.
	for i := 0; i < *rows; i++ {
		frac := float64(i) / float64(*rows)
		row := blankRow()
		row[0] = strconv.Itoa(i)
		row[43] = fmt.Sprintf("%.7f", -6.3275+0.01*math.Sin(2*math.Pi*frac))
		row[44] = fmt.Sprintf("%.7f", 53.4213+0.01*math.Cos(2*math.Pi*frac))
		row[47] = fmt.Sprintf("%.0f", float64(i)*(*stepMs))
		row[48] = fmt.Sprintf("%.1f", 120*math.Sin(math.Pi*frac))
		row[42] = state(frac)
		if err := w.Write(row); err != nil {
			log.Fatalf("writing row %d: %v", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("flushing %s: %v", *output, err)
	}
	log.Printf("wrote %d rows to %s (state column 42, map with %s=42)", *rows, *output, fieldmap.FieldState)
}

// header follows the recorder's standard export: the mapped columns carry
// real names, everything else is firmware channel padding.
func header() []string {
	h := blankRow()
	h[0] = "Tick"
	h[42] = "flightmode"
	h[43] = "GPS_long"
	h[44] = "GPS_lat"
	h[47] = "GPS_ts"
	h[48] = "GPS_alt"
	for i := range h {
		if h[i] == "" {
			h[i] = fmt.Sprintf("chan%02d", i)
		}
	}
	return h
}

func blankRow() []string {
	return make([]string, 49)
}

func state(frac float64) string {
	switch {
	case frac < 0.1:
		return "takeoff"
	case frac < 0.85:
		return "cruise"
	default:
		return "landing"
	}
}
