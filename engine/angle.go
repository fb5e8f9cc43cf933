package tempora

import (
	"fmt"
	"math"
	"time"

	Mt "github.com/maroda/tempora/types"
)

// TopOffset rotates every scale so its period starts at 12 o'clock
const TopOffset = -90.0

// AngleFor places the instant on the ring for the given scale.
// 0° is up and angles grow clockwise, so the start of a period is -90°.
// The calendar fields are read in the instant's own location.
func AngleFor(scale Mt.TimeScale, t time.Time) float64 {
	var fraction float64

	switch scale {
	case Mt.Day:
		minutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0 + float64(t.Nanosecond())/6e10
		fraction = minutes / 1440.0
	case Mt.Week:
		hours := int(t.Weekday())*24 + t.Hour()
		fraction = float64(hours) / (7 * 24)
	case Mt.Month:
		fraction = float64(t.Day()-1) / float64(DaysInMonth(t.Year(), t.Month()))
	case Mt.Year:
		fraction = float64(t.YearDay()) / float64(DaysInYear(t.Year()))
	default:
		panic(fmt.Sprintf("AngleFor: invalid time scale %d", int(scale)))
	}

	return fraction*360.0 + TopOffset
}

// DaysInMonth counts the days of month m in year y
func DaysInMonth(y int, m time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInYear is 366 for leap years, 365 otherwise
func DaysInYear(y int) int {
	if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		return 366
	}
	return 365
}

// Period is the natural cycle of the scale that contains t
func Period(scale Mt.TimeScale, t time.Time) time.Duration {
	switch scale {
	case Mt.Day:
		return 24 * time.Hour
	case Mt.Week:
		return 7 * 24 * time.Hour
	case Mt.Month:
		return time.Duration(DaysInMonth(t.Year(), t.Month())) * 24 * time.Hour
	case Mt.Year:
		return time.Duration(DaysInYear(t.Year())) * 24 * time.Hour
	default:
		panic(fmt.Sprintf("Period: invalid time scale %d", int(scale)))
	}
}

// NormalizeDegrees maps any angle into [0, 360)
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360.0)
	if a < 0 {
		a += 360.0
	}
	// -0.0 and values that round up to 360
	if a >= 360.0 {
		a = 0
	}
	return a
}

// AngularDistance is the shorter way around the circle between a and b, in [0, 180]
func AngularDistance(a, b float64) float64 {
	d := NormalizeDegrees(a - b)
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// ShortestDelta is the signed step from a to b along the shorter arc, in (-180, 180]
func ShortestDelta(a, b float64) float64 {
	d := NormalizeDegrees(b - a)
	if d > 180.0 {
		d -= 360.0
	}
	return d
}

// PolarToXY converts a ring angle to layout coordinates.
// Screen y grows downward, so -90° lands straight above the center.
func PolarToXY(cx, cy, radius, degrees float64) (float64, float64) {
	rad := degrees * math.Pi / 180.0
	return cx + radius*math.Cos(rad), cy + radius*math.Sin(rad)
}
