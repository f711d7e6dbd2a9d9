// Package fieldmap resolves semantic telemetry fields to CSV columns.
//
// A flight-log export has no fixed column layout; the recorder firmware
// decides which column carries latitude, longitude, the GPS timestamp and
// so on. This package merges the built-in default layout with optional
// user-supplied assignments (inline or from a map file) and binds each
// semantic field to a concrete column index against the actual CSV header.
// Resolution happens once, before any data row is read.
package fieldmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackbox-data/csv2kml/internal/fsutil"
)

// Field is a semantic telemetry field name.
type Field string

// The closed set of semantic fields a flight-log column can be mapped to.
const (
	FieldTick      Field = "tick"
	FieldLatitude  Field = "latitude"
	FieldLongitude Field = "longitude"
	FieldAltitude  Field = "altitude"
	FieldTimestamp Field = "timestamp"
	FieldState     Field = "state"
)

// knownFields guards against typos in map files and inline assignments.
var knownFields = map[Field]bool{
	FieldTick:      true,
	FieldLatitude:  true,
	FieldLongitude: true,
	FieldAltitude:  true,
	FieldTimestamp: true,
	FieldState:     true,
}

// requiredFields must resolve to a column or the run fails before any row
// is processed.
var requiredFields = []Field{FieldLatitude, FieldLongitude, FieldTimestamp}

// ConfigError reports an invalid or incomplete field mapping. It is always
// raised before row processing begins.
type ConfigError struct {
	msg string
	err error
}

func (e *ConfigError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ConfigError) Unwrap() error { return e.err }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Spec is an unresolved field map: semantic field name to a column
// reference, which is either a zero-based index or a header name.
type Spec map[Field]string

// Defaults returns the column layout of the recorder's standard export.
// The state field has no default column; it must be mapped explicitly.
func Defaults() Spec {
	return Spec{
		FieldTick:      "0",
		FieldLongitude: "43",
		FieldLatitude:  "44",
		FieldTimestamp: "47",
		FieldAltitude:  "48",
	}
}

// ParseAssignments parses a compact inline field map such as
// "latitude=4,longitude=5,state=flight_mode". Assignments are separated by
// commas; whitespace around keys and values is ignored.
func ParseAssignments(s string) (Spec, error) {
	spec := Spec{}
	if strings.TrimSpace(s) == "" {
		return spec, nil
	}
	for _, part := range strings.Split(s, ",") {
		if err := spec.addAssignment(part); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// LoadFile reads a field map file: one field=column assignment per line,
// blank lines and #-prefixed lines ignored, later lines overriding earlier
// ones.
func LoadFile(fsys fsutil.FileSystem, path string) (Spec, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{msg: fmt.Sprintf("cannot read field map file %s", path), err: err}
	}
	spec := Spec{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := spec.addAssignment(line); err != nil {
			return nil, &ConfigError{msg: fmt.Sprintf("%s:%d", path, i+1), err: err}
		}
	}
	return spec, nil
}

func (s Spec) addAssignment(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return configErrorf("invalid assignment %q, expected field=column", strings.TrimSpace(raw))
	}
	field := Field(strings.TrimSpace(key))
	column := strings.TrimSpace(value)
	if !knownFields[field] {
		return configErrorf("unknown field %q", string(field))
	}
	if column == "" {
		return configErrorf("empty column reference for field %q", string(field))
	}
	s[field] = column
	return nil
}

// Merge layers specs left to right; later specs override earlier ones.
func Merge(specs ...Spec) Spec {
	merged := Spec{}
	for _, spec := range specs {
		for field, column := range spec {
			merged[field] = column
		}
	}
	return merged
}

// Map is a validated field map with every mapped field bound to a column
// index in a specific CSV header. Indices are -1 for unmapped optional
// fields.
type Map struct {
	Tick      int
	Latitude  int
	Longitude int
	Altitude  int
	Timestamp int
	State     int
}

// HasAltitude reports whether an altitude column is mapped.
func (m *Map) HasAltitude() bool { return m.Altitude >= 0 }

// HasState reports whether a flight-state column is mapped.
func (m *Map) HasState() bool { return m.State >= 0 }

// HasTick reports whether a tick column is mapped.
func (m *Map) HasTick() bool { return m.Tick >= 0 }

// Resolve validates spec against the CSV header and binds each mapped
// field to a column index. Column references are tried as a zero-based
// index first, then as a header name. A reference that matches neither,
// or a missing required field, is a ConfigError.
func Resolve(header []string, spec Spec) (*Map, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	m := &Map{Tick: -1, Latitude: -1, Longitude: -1, Altitude: -1, Timestamp: -1, State: -1}
	for field, column := range spec {
		idx, err := resolveColumn(header, byName, column)
		if err != nil {
			return nil, &ConfigError{msg: fmt.Sprintf("field %q", string(field)), err: err}
		}
		switch field {
		case FieldTick:
			m.Tick = idx
		case FieldLatitude:
			m.Latitude = idx
		case FieldLongitude:
			m.Longitude = idx
		case FieldAltitude:
			m.Altitude = idx
		case FieldTimestamp:
			m.Timestamp = idx
		case FieldState:
			m.State = idx
		}
	}

	for _, field := range requiredFields {
		if _, ok := spec[field]; !ok {
			return nil, configErrorf("required field %q is not mapped", string(field))
		}
	}
	return m, nil
}

func resolveColumn(header []string, byName map[string]int, column string) (int, error) {
	if idx, err := strconv.Atoi(column); err == nil {
		if idx < 0 || idx >= len(header) {
			return 0, configErrorf("column index %d out of range, header has %d columns", idx, len(header))
		}
		return idx, nil
	}
	if idx, ok := byName[column]; ok {
		return idx, nil
	}
	return 0, configErrorf("no column named %q in header", column)
}
