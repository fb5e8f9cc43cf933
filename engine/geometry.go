package tempora

import (
	"fmt"
	"math"
	"time"

	Mt "github.com/maroda/tempora/types"
)

// Segment counts for the fixed-cardinality scales
const (
	DaySegments   = 24
	WeekSegments  = 7
	YearSegments  = 12
	MonthSegments = 5 // weeks in a typical month, used when no instant is known
)

// Geometry places layouts around a center point.
// Coordinates are layout pixels with y growing downward.
type Geometry struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

func NewGeometry(cx, cy, radius float64) Geometry {
	return Geometry{CenterX: cx, CenterY: cy, Radius: radius}
}

// LayoutFor is the reference layout of a scale.
// Month uses MonthSegments since its real count depends on the calendar.
func (g Geometry) LayoutFor(scale Mt.TimeScale) []Mt.GeometrySegment {
	switch scale {
	case Mt.Day:
		return g.ring(DaySegments, g.Radius, 1.0)
	case Mt.Week:
		return g.ring(WeekSegments, g.Radius/math.Sqrt(Phi), 1.4)
	case Mt.Month:
		return g.spiral(MonthSegments)
	case Mt.Year:
		return g.yearRing()
	default:
		panic(fmt.Sprintf("LayoutFor: invalid time scale %d", int(scale)))
	}
}

// LayoutAt is the layout of a scale for the period containing t.
// Only Month differs from LayoutFor: one segment per calendar week the month touches.
func (g Geometry) LayoutAt(scale Mt.TimeScale, t time.Time) []Mt.GeometrySegment {
	if scale == Mt.Month {
		return g.spiral(WeeksSpanned(t.Year(), t.Month()))
	}
	return g.LayoutFor(scale)
}

// WeeksSpanned counts the Sunday-started weeks that hold a day of the month, 4 to 6
func WeeksSpanned(y int, m time.Month) int {
	lead := int(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).Weekday())
	return (lead + DaysInMonth(y, m) + 6) / 7
}

// ring spaces n segments evenly at radius r, the first one at the top
func (g Geometry) ring(n int, r, scale float64) []Mt.GeometrySegment {
	segs := make([]Mt.GeometrySegment, n)
	step := 360.0 / float64(n)
	for i := range segs {
		angle := float64(i)*step + TopOffset
		x, y := PolarToXY(g.CenterX, g.CenterY, r, angle)
		segs[i] = Mt.GeometrySegment{
			Index:    i,
			Angle:    angle,
			X:        x,
			Y:        y,
			Scale:    scale,
			Rotation: angle + 90,
			Opacity:  1,
		}
	}
	return segs
}

// spiral lays month weeks outward from half radius,
// each week a little further out and a little larger
func (g Geometry) spiral(n int) []Mt.GeometrySegment {
	segs := make([]Mt.GeometrySegment, n)
	if n == 0 {
		return segs
	}
	step := 360.0 / float64(n)
	inner := g.Radius * 0.5
	growth := (g.Radius - inner) / float64(n)
	for i := range segs {
		angle := float64(i)*step + TopOffset
		r := inner + float64(i)*growth
		x, y := PolarToXY(g.CenterX, g.CenterY, r, angle)
		segs[i] = Mt.GeometrySegment{
			Index:    i,
			Angle:    angle,
			X:        x,
			Y:        y,
			Scale:    1.8 * (1 + float64(i)/float64(n)/Phi),
			Rotation: angle + 90,
			Opacity:  1,
		}
	}
	return segs
}

// yearRing is twelve months on a slightly tighter ring,
// each tilted by a fraction of the golden angle
func (g Geometry) yearRing() []Mt.GeometrySegment {
	segs := g.ring(YearSegments, g.Radius*0.9, 1.1)
	for i := range segs {
		tilt := math.Mod(float64(i)*GoldenAngle, 360.0) / 12.0
		segs[i].Rotation += tilt
	}
	return segs
}

// Interpolate blends two layouts at progress p in [0, 1].
// Aligned pairs move along straight lines, angles along the shorter arc.
// Surplus segments of from fade out, surplus segments of to fade in.
// Neither input is modified.
func Interpolate(from, to []Mt.GeometrySegment, p float64) []Mt.GeometrySegment {
	p = clamp01(p)
	n := max(len(from), len(to))
	out := make([]Mt.GeometrySegment, n)

	for i := 0; i < n; i++ {
		switch {
		case i < len(from) && i < len(to):
			a, b := from[i], to[i]
			out[i] = Mt.GeometrySegment{
				Index:    i,
				Angle:    a.Angle + ShortestDelta(a.Angle, b.Angle)*p,
				X:        lerp(a.X, b.X, p),
				Y:        lerp(a.Y, b.Y, p),
				Scale:    lerp(a.Scale, b.Scale, p),
				Rotation: a.Rotation + ShortestDelta(a.Rotation, b.Rotation)*p,
				Opacity:  lerp(a.Opacity, b.Opacity, p),
			}
		case i < len(from):
			seg := from[i]
			seg.Index = i
			seg.Opacity *= 1 - p
			out[i] = seg
		default:
			seg := to[i]
			seg.Index = i
			seg.Opacity *= p
			out[i] = seg
		}
	}
	return out
}

// layoutCache holds computed layouts; month keys carry the calendar month
type layoutCache struct {
	geo   Geometry
	cache map[layoutKey][]Mt.GeometrySegment
}

type layoutKey struct {
	scale Mt.TimeScale
	year  int
	month time.Month
}

func newLayoutCache(g Geometry) *layoutCache {
	return &layoutCache{geo: g, cache: make(map[layoutKey][]Mt.GeometrySegment)}
}

// get returns a shared slice, callers must copy before handing it out
func (lc *layoutCache) get(scale Mt.TimeScale, t time.Time) []Mt.GeometrySegment {
	key := layoutKey{scale: scale}
	if scale == Mt.Month {
		key.year, key.month = t.Year(), t.Month()
	}
	if segs, ok := lc.cache[key]; ok {
		return segs
	}
	segs := lc.geo.LayoutAt(scale, t)
	lc.cache[key] = segs
	return segs
}
