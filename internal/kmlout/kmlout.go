// Package kmlout assembles the KML document for a retained flight track.
//
// The document layout mirrors what the recorder vendor's viewer expects:
// shared line/icon styles up front, a folder with start and end markers,
// then either a single "Flight Trace" LineString or one Point placemark
// per sample. The whole document is built in memory and serialized once;
// nothing is streamed to the destination.
package kmlout

import (
	"fmt"
	"image/color"
	"io"

	kml "github.com/twpayne/go-kml/v2"

	"github.com/blackbox-data/csv2kml/internal/telemetry"
)

// Mode selects the output geometry.
type Mode int

const (
	// ModeTrack emits one LineString connecting all retained points.
	ModeTrack Mode = iota

	// ModePlacemarks emits one Point placemark per retained point.
	ModePlacemarks
)

// AltitudeRef selects how the viewer interprets recorded altitudes.
type AltitudeRef int

const (
	// AltGroundRelative renders altitudes relative to terrain.
	AltGroundRelative AltitudeRef = iota

	// AltAbsolute renders altitudes as elevation above sea level.
	AltAbsolute
)

// Style identifiers and marker icons, as used by the original viewer
// setup.
const (
	lineStyleID  = "lineStyle1"
	startStyleID = "iconPathStart"
	endStyleID   = "iconPathEnd"

	startIconHref = "http://www.earthpoint.us/Dots/GoogleEarth/pal2/icon13.png"
	endIconHref   = "http://www.earthpoint.us/Dots/GoogleEarth/shapes/target.png"
)

// trackColor is KML aabbggrr ff00ffff: opaque yellow.
var trackColor = color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff}

// Options configures document assembly. Validated once at startup and
// passed through unchanged.
type Options struct {
	Mode         Mode
	Altitude     AltitudeRef
	StateMarkers bool

	// Compact disables indentation; content is unchanged.
	Compact bool
}

// Document is a fully assembled KML document ready for serialization.
type Document struct {
	root    *kml.CompoundElement
	compact bool
}

// Build assembles the document for the retained points. An empty point
// slice produces a valid document with zero geometries.
func Build(points []telemetry.Point, opts *Options) *Document {
	doc := kml.Document(
		kml.SharedStyle(lineStyleID,
			kml.LineStyle(
				kml.Color(trackColor),
				kml.Width(4),
			),
		),
		iconStyle(startStyleID, startIconHref),
		iconStyle(endStyleID, endIconHref),
	)

	switch opts.Mode {
	case ModePlacemarks:
		for i := range points {
			doc.Add(pointPlacemark(&points[i], "", opts))
		}
	default:
		if len(points) > 0 {
			doc.Add(kml.Folder(
				pointPlacemark(&points[0], "#"+startStyleID, opts),
				pointPlacemark(&points[len(points)-1], "#"+endStyleID, opts),
			))
			doc.Add(kml.Folder(trackPlacemark(points, opts)))
		}
	}

	if opts.StateMarkers {
		if markers := stateMarkers(points, opts); len(markers) > 0 {
			folder := kml.Folder(kml.Name("State changes"))
			folder.Add(markers...)
			doc.Add(folder)
		}
	}

	return &Document{
		root:    kml.KML(doc),
		compact: opts.Compact,
	}
}

// Render serializes the document to w. Serialization failures leave the
// destination untouched only if w buffers; callers write through a buffer.
func (d *Document) Render(w io.Writer) error {
	if d.compact {
		return d.root.Write(w)
	}
	return d.root.WriteIndent(w, "", "  ")
}

func iconStyle(id, href string) kml.Element {
	return kml.SharedStyle(id,
		kml.IconStyle(
			kml.Icon(
				kml.Href(href),
			),
		),
	)
}

func trackPlacemark(points []telemetry.Point, opts *Options) kml.Element {
	coords := make([]kml.Coordinate, len(points))
	for i := range points {
		coords[i] = coordinate(&points[i])
	}
	return kml.Placemark(
		kml.Name("Flight Trace"),
		kml.Description(telemetry.Summarize(points).Describe()),
		kml.StyleURL("#"+lineStyleID),
		kml.LineString(
			kml.Extrude(false),
			kml.Tessellate(false),
			altitudeMode(opts.Altitude),
			kml.Coordinates(coords...),
		),
	)
}

func pointPlacemark(p *telemetry.Point, styleURL string, opts *Options) kml.Element {
	children := []kml.Element{
		kml.Name(p.Name()),
		kml.Description(describePoint(p)),
	}
	if styleURL != "" {
		children = append(children, kml.StyleURL(styleURL))
	}
	children = append(children, kml.Point(
		altitudeMode(opts.Altitude),
		kml.Extrude(true),
		kml.Coordinates(coordinate(p)),
	))
	return kml.Placemark(children...)
}

// stateMarkers returns one placemark per flight-state transition between
// consecutive retained points, labeled with the new state.
func stateMarkers(points []telemetry.Point, opts *Options) []kml.Element {
	var markers []kml.Element
	for i := 1; i < len(points); i++ {
		if points[i].State == points[i-1].State {
			continue
		}
		markers = append(markers, kml.Placemark(
			kml.Name(points[i].State),
			kml.Description(fmt.Sprintf("state %q -> %q at %s", points[i-1].State, points[i].State, points[i].Name())),
			kml.StyleURL("#"+endStyleID),
			kml.Point(
				altitudeMode(opts.Altitude),
				kml.Coordinates(coordinate(&points[i])),
			),
		))
	}
	return markers
}

func describePoint(p *telemetry.Point) string {
	desc := fmt.Sprintf("row %d, t=%.0fms", p.Row, p.Timestamp)
	if p.State != "" {
		desc += ", state=" + p.State
	}
	return desc
}

func coordinate(p *telemetry.Point) kml.Coordinate {
	c := kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
	if p.HasAlt {
		c.Alt = p.Alt
	}
	return c
}

func altitudeMode(ref AltitudeRef) kml.Element {
	if ref == AltAbsolute {
		return kml.AltitudeMode(kml.AltitudeModeAbsolute)
	}
	return kml.AltitudeMode(kml.AltitudeModeRelativeToGround)
}
