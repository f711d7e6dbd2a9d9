package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/blackbox-data/csv2kml/internal/fieldmap"
	"github.com/blackbox-data/csv2kml/internal/fsutil"
)

// compactCSV is a five-row flight log in a compact layout, 1000ms apart.
func compactCSV() string {
	var b strings.Builder
	b.WriteString("tick,lat,lon,ts,alt,state\n")
	states := []string{"takeoff", "cruise", "cruise", "cruise", "landing"}
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "%d,%f,%f,%d,%f,%s\n", i, 53.42+0.001*float64(i), -6.32, i*1000, 100.0, states[i])
	}
	return b.String()
}

// compactMap maps the compact layout by column name.
const compactMap = "tick=tick,latitude=lat,longitude=lon,timestamp=ts,altitude=alt,state=state"

func TestRunTrackToFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldMap: compactMap}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := fsys.ReadFile("flight.kml")
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	kml := string(out)
	if !strings.Contains(kml, "<LineString>") || !strings.Contains(kml, "Flight Trace") {
		t.Errorf("output is not a track document:\n%s", kml)
	}
	if got := strings.Count(kml, "53.42"); got < 5 {
		t.Errorf("expected at least 5 vertices, found %d coordinate hits", got)
	}
}

func TestRunThresholdDecimation(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{
		Input:       "flight.csv",
		Output:      "flight.kml",
		FieldMap:    compactMap,
		ThresholdMs: 1500,
		Placemarks:  true,
	}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _ := fsys.ReadFile("flight.kml")
	// Rows 1, 3, 5 survive a 1500ms threshold over 1000ms spacing.
	if got := strings.Count(string(out), "<Point>"); got != 3 {
		t.Errorf("Point count = %d, want 3", got)
	}
}

func TestRunStdinStdout(t *testing.T) {
	var stdout bytes.Buffer
	cfg := &Config{FieldMap: compactMap, Compact: true}

	err := run(cfg, fsutil.NewMemoryFileSystem(), strings.NewReader(compactCSV()), &stdout)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "<kml") {
		t.Errorf("stdout output is not KML:\n%s", stdout.String())
	}
}

func TestRunConfigErrorLeavesOutputUntouched(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}
	if err := fsys.WriteFile("map.txt", []byte("latitude=no_such_column\n"), 0644); err != nil {
		t.Fatalf("seeding map file: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldFile: "map.txt", FieldMap: "longitude=lon,timestamp=ts"}
	err := run(cfg, fsys, nil, nil)

	var confErr *fieldmap.ConfigError
	if !errors.As(err, &confErr) {
		t.Fatalf("run error = %v, want ConfigError", err)
	}
	if fsys.Exists("flight.kml") {
		t.Error("output file created despite configuration error")
	}
}

func TestRunInlineOverridesFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}
	// The file maps latitude to a bogus column; the inline assignment
	// must win.
	mapFile := "latitude=no_such_column\nlongitude=lon\ntimestamp=ts\ntick=tick\naltitude=alt\n"
	if err := fsys.WriteFile("map.txt", []byte(mapFile), 0644); err != nil {
		t.Fatalf("seeding map file: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldFile: "map.txt", FieldMap: "latitude=lat"}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunMalformedRowIsNonFatal(t *testing.T) {
	csv := compactCSV()
	csv = strings.Replace(csv, "53.421000", "not-a-number", 1)

	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(csv), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldMap: compactMap, Placemarks: true}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _ := fsys.ReadFile("flight.kml")
	if got := strings.Count(string(out), "<Point>"); got != 4 {
		t.Errorf("Point count = %d, want 4 after skipping the bad row", got)
	}
}

func TestRunHeaderOnlyInput(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte("tick,lat,lon,ts,alt,state\n"), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldMap: compactMap}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _ := fsys.ReadFile("flight.kml")
	kml := string(out)
	if !strings.Contains(kml, "<Document") {
		t.Errorf("missing document element:\n%s", kml)
	}
	for _, geom := range []string{"<LineString>", "<Point>"} {
		if strings.Contains(kml, geom) {
			t.Errorf("header-only input emitted geometry %s", geom)
		}
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := &Config{Input: "absent.csv", Output: "flight.kml"}
	fsys := fsutil.NewMemoryFileSystem()

	err := run(cfg, fsys, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	var confErr *fieldmap.ConfigError
	if errors.As(err, &confErr) {
		t.Errorf("missing input should be an I/O error, got ConfigError: %v", err)
	}
	if fsys.Exists("flight.kml") {
		t.Error("output file created despite input error")
	}
}

func TestRunNegativeThreshold(t *testing.T) {
	cfg := &Config{ThresholdMs: -1}
	err := run(cfg, fsutil.NewMemoryFileSystem(), strings.NewReader(""), nil)

	var usage *usageError
	if !errors.As(err, &usage) {
		t.Fatalf("error = %v, want usageError", err)
	}
}

func TestRunStateMarkers(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", FieldMap: compactMap, StateMarks: true}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _ := fsys.ReadFile("flight.kml")
	// takeoff -> cruise -> landing: two transitions.
	if got := strings.Count(string(out), "<Point>"); got != 4 {
		// 2 start/end markers + 2 transition markers.
		t.Errorf("Point count = %d, want 4", got)
	}
}

func TestRunWritesChart(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("flight.csv", []byte(compactCSV()), 0644); err != nil {
		t.Fatalf("seeding input: %v", err)
	}

	cfg := &Config{Input: "flight.csv", Output: "flight.kml", Chart: "profile.html", FieldMap: compactMap}
	if err := run(cfg, fsys, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	html, err := fsys.ReadFile("profile.html")
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if !strings.Contains(string(html), "Altitude") {
		t.Error("chart page missing altitude profile")
	}
}
