package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/blackbox-data/csv2kml/internal/fieldmap"
)

// SamplerConfig controls which parsed points the sampler retains.
type SamplerConfig struct {
	// ThresholdMs is the minimum elapsed time in milliseconds between two
	// retained points. Zero retains every valid row.
	ThresholdMs float64

	// StateChange retains a row whenever its flight state differs from
	// the previously retained row's state, regardless of the threshold.
	StateChange bool
}

// Sampler reads data rows from a CSV stream in order and yields the
// retained points. It is a forward-only, single-pass consumer: once a row
// has been read it is either yielded or gone.
//
// Timestamps are assumed monotonically non-decreasing, as written by the
// recorder. The sampler does not reorder or deduplicate.
type Sampler struct {
	r     *csv.Reader
	m     *fieldmap.Map
	cfg   SamplerConfig
	warnf func(format string, args ...any)

	row       int
	lastTs    float64
	lastState string
	first     bool

	skipped int
}

// NewSampler wraps a CSV reader positioned after the header row. warnf
// receives one message per skipped row; nil disables warnings.
func NewSampler(r *csv.Reader, m *fieldmap.Map, cfg SamplerConfig, warnf func(format string, args ...any)) *Sampler {
	// Recorder exports occasionally pad trailing columns; don't let the
	// csv package reject rows on column count alone.
	r.FieldsPerRecord = -1
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &Sampler{r: r, m: m, cfg: cfg, warnf: warnf, first: true}
}

// Skipped returns the number of rows dropped for parse failures so far.
func (s *Sampler) Skipped() int { return s.skipped }

// Next returns the next retained point, or io.EOF when the input is
// exhausted. Rows with unparsable required fields are skipped with a
// warning and do not end the stream.
func (s *Sampler) Next() (Point, error) {
	for {
		fields, err := s.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Point{}, io.EOF
			}
			return Point{}, fmt.Errorf("reading CSV: %w", err)
		}
		s.row++

		p, err := parsePoint(s.m, s.row, fields)
		if err != nil {
			s.skipped++
			s.warnf("skipping row %d: %v", s.row, err)
			continue
		}

		if !s.keep(&p) {
			continue
		}
		s.lastTs = p.Timestamp
		s.lastState = p.State
		s.first = false
		return p, nil
	}
}

// keep applies the retention rule: first valid row, elapsed time at or
// above the threshold, or a flight-state transition when enabled. The two
// conditions are a logical OR; either alone retains the row.
func (s *Sampler) keep(p *Point) bool {
	if s.first {
		return true
	}
	if p.Timestamp-s.lastTs >= s.cfg.ThresholdMs {
		return true
	}
	if s.cfg.StateChange && p.State != s.lastState {
		return true
	}
	return false
}

// Collect drains the sampler and returns all retained points in input
// order. An empty input yields an empty, non-nil slice.
func (s *Sampler) Collect() ([]Point, error) {
	points := []Point{}
	for {
		p, err := s.Next()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
}
