// Package units provides shared constants and conversions for speed and
// time values used in track summaries.
package units

// Unit constants
const (
	MPS = "mps"
	MPH = "mph"
	KPH = "kph"
)

// ConvertSpeed converts a speed from meters per second to the target
// units. Track statistics are computed in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KPH:
		return speedMPS * 3.6 // m/s to km/h
	default:
		return speedMPS
	}
}

// MillisToSeconds converts a millisecond count to seconds.
func MillisToSeconds(ms float64) float64 {
	return ms / 1000
}
