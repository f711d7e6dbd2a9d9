// Command csv2kml converts flight-log telemetry CSV exports into KML for
// mapping applications. It runs the converter pipeline once per
// invocation: resolve the field map against the CSV header, sample the
// data rows, emit the KML document.
package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/blackbox-data/csv2kml/internal/chart"
	"github.com/blackbox-data/csv2kml/internal/fieldmap"
	"github.com/blackbox-data/csv2kml/internal/fsutil"
	"github.com/blackbox-data/csv2kml/internal/kmlout"
	"github.com/blackbox-data/csv2kml/internal/telemetry"
	"github.com/blackbox-data/csv2kml/internal/version"
)

// Config holds the converter configuration assembled from flags.
type Config struct {
	Input       string
	Output      string
	Chart       string
	FieldMap    string
	FieldFile   string
	LogFile     string
	ThresholdMs float64
	Placemarks  bool
	Absolute    bool
	StateMarks  bool
	Compact     bool
	Verbose     bool
	Debug       bool
	ShowVersion bool
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.BoolVar(&cfg.Absolute, "a", false, "use absolute altitude mode (default: ground-relative)")
	flag.StringVar(&cfg.Chart, "c", "", "write an HTML altitude/speed profile chart to this path")
	flag.BoolVar(&cfg.Debug, "d", false, "print full internal error context on fatal failure")
	flag.StringVar(&cfg.FieldMap, "f", "", "inline field map assignments (field=column,...)")
	flag.StringVar(&cfg.FieldFile, "F", "", "path to a field map file")
	flag.StringVar(&cfg.Input, "i", "", "input CSV path (default: stdin)")
	flag.StringVar(&cfg.LogFile, "l", "", "redirect diagnostic log output to this file")
	flag.BoolVar(&cfg.Compact, "n", false, "disable pretty-printing, emit compact XML")
	flag.StringVar(&cfg.Output, "o", "", "output KML path (default: stdout)")
	flag.BoolVar(&cfg.Placemarks, "p", false, "emit placemarks instead of a track")
	flag.BoolVar(&cfg.StateMarks, "s", false, "emit state-change placemarks")
	flag.Float64Var(&cfg.ThresholdMs, "t", 0, "sampling threshold in milliseconds")
	flag.BoolVar(&cfg.Verbose, "v", false, "verbose diagnostic logging")
	flag.BoolVar(&cfg.ShowVersion, "V", false, "print version and exit")
	flag.Parse()
	return cfg
}

// usageError marks configuration mistakes outside the field map, so main
// can report them with the configuration exit code.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("cannot open log file %s: %v", cfg.LogFile, err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if err := run(cfg, fsutil.OSFileSystem{}, os.Stdin, os.Stdout); err != nil {
		reportFatal(err, cfg.Debug)

		var confErr *fieldmap.ConfigError
		var usage *usageError
		if errors.As(err, &confErr) || errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// reportFatal logs a fatal error; with debug it also walks the wrap chain
// so the underlying cause is visible.
func reportFatal(err error, debug bool) {
	log.Printf("fatal: %v", err)
	if !debug {
		return
	}
	for depth := 1; ; depth++ {
		err = errors.Unwrap(err)
		if err == nil {
			return
		}
		log.Printf("  cause[%d]: %v", depth, err)
	}
}

// run executes the full pipeline. The output destination is only written
// once the whole document has been assembled and serialized; a failure at
// any earlier stage leaves it untouched.
func run(cfg *Config, fsys fsutil.FileSystem, stdin io.Reader, stdout io.Writer) error {
	if cfg.ThresholdMs < 0 {
		return &usageError{msg: fmt.Sprintf("sampling threshold must be non-negative, got %g", cfg.ThresholdMs)}
	}

	spec, err := buildSpec(cfg, fsys)
	if err != nil {
		return err
	}

	input, name, err := openInput(cfg, fsys, stdin)
	if err != nil {
		return err
	}
	defer input.Close()

	reader := csv.NewReader(input)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header from %s: %w", name, err)
	}

	fm, err := fieldmap.Resolve(header, spec)
	if err != nil {
		return err
	}
	vlogf(cfg, "field map resolved: lat=%d lon=%d ts=%d alt=%d state=%d tick=%d",
		fm.Latitude, fm.Longitude, fm.Timestamp, fm.Altitude, fm.State, fm.Tick)

	sampler := telemetry.NewSampler(reader, fm, telemetry.SamplerConfig{
		ThresholdMs: cfg.ThresholdMs,
		StateChange: cfg.StateMarks,
	}, log.Printf)
	points, err := sampler.Collect()
	if err != nil {
		return err
	}
	vlogf(cfg, "retained %d points, skipped %d rows", len(points), sampler.Skipped())

	doc := kmlout.Build(points, &kmlout.Options{
		Mode:         mode(cfg),
		Altitude:     altitudeRef(cfg),
		StateMarkers: cfg.StateMarks,
		Compact:      cfg.Compact,
	})

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return fmt.Errorf("serializing KML: %w", err)
	}

	if err := writeOutput(cfg, fsys, stdout, buf.Bytes()); err != nil {
		return err
	}

	if cfg.Chart != "" {
		html, err := chart.Render(points)
		if err != nil {
			return err
		}
		if err := fsys.WriteFile(cfg.Chart, html, 0644); err != nil {
			return fmt.Errorf("writing chart %s: %w", cfg.Chart, err)
		}
		vlogf(cfg, "wrote profile chart to %s", cfg.Chart)
	}
	return nil
}

// buildSpec merges the default layout with map-file and inline
// assignments; inline values override file values.
func buildSpec(cfg *Config, fsys fsutil.FileSystem) (fieldmap.Spec, error) {
	layers := []fieldmap.Spec{fieldmap.Defaults()}
	if cfg.FieldFile != "" {
		fileSpec, err := fieldmap.LoadFile(fsys, cfg.FieldFile)
		if err != nil {
			return nil, err
		}
		layers = append(layers, fileSpec)
	}
	if cfg.FieldMap != "" {
		inline, err := fieldmap.ParseAssignments(cfg.FieldMap)
		if err != nil {
			return nil, err
		}
		layers = append(layers, inline)
	}
	return fieldmap.Merge(layers...), nil
}

func openInput(cfg *Config, fsys fsutil.FileSystem, stdin io.Reader) (io.ReadCloser, string, error) {
	if cfg.Input == "" {
		return io.NopCloser(stdin), "stdin", nil
	}
	f, err := fsys.Open(cfg.Input)
	if err != nil {
		return nil, "", fmt.Errorf("cannot open input %s: %w", cfg.Input, err)
	}
	return f, cfg.Input, nil
}

func writeOutput(cfg *Config, fsys fsutil.FileSystem, stdout io.Writer, data []byte) error {
	if cfg.Output == "" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("writing KML to stdout: %w", err)
		}
		return nil
	}
	if err := fsys.WriteFile(cfg.Output, data, 0644); err != nil {
		return fmt.Errorf("writing KML %s: %w", cfg.Output, err)
	}
	return nil
}

func mode(cfg *Config) kmlout.Mode {
	if cfg.Placemarks {
		return kmlout.ModePlacemarks
	}
	return kmlout.ModeTrack
}

func altitudeRef(cfg *Config) kmlout.AltitudeRef {
	if cfg.Absolute {
		return kmlout.AltAbsolute
	}
	return kmlout.AltGroundRelative
}

func vlogf(cfg *Config, format string, args ...any) {
	if cfg.Verbose {
		log.Printf(format, args...)
	}
}
