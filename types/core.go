package types

/*

	These are the "immutable" core types of Tempora,
	provided for cross-package use (e.g. Plugins) and testing.

	Only small value helpers are defined here.
	Behaviour lives in the engine package,
	which creates local aliases where it needs them.

*/

import (
	"fmt"
	"strings"
	"time"
)

// TimeScale is the zoom level of the timeline.
// The order matters: Day < Week < Month < Year.
type TimeScale int

const (
	Day   TimeScale = iota // 24 hours around the ring
	Week                   // 7 days around the ring
	Month                  // days of the current month
	Year                   // days of the current year
)

// Scales lists every TimeScale in zoom order
var Scales = []TimeScale{Day, Week, Month, Year}

func (s TimeScale) String() string {
	switch s {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// Valid reports whether s is one of the four known scales
func (s TimeScale) Valid() bool {
	return s >= Day && s <= Year
}

// ZoomIn returns the next finer scale, or s itself at Day
func (s TimeScale) ZoomIn() TimeScale {
	if s <= Day {
		return Day
	}
	return s - 1
}

// ZoomOut returns the next coarser scale, or s itself at Year
func (s TimeScale) ZoomOut() TimeScale {
	if s >= Year {
		return Year
	}
	return s + 1
}

// ParseTimeScale accepts the lowercase names used in config and the API
func ParseTimeScale(name string) (TimeScale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "day", "d":
		return Day, nil
	case "week", "w":
		return Week, nil
	case "month", "m":
		return Month, nil
	case "year", "y":
		return Year, nil
	}
	return Day, fmt.Errorf("unknown time scale: %q", name)
}

func (s TimeScale) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid time scale: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *TimeScale) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeScale(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Phase of a scale transition
type Phase int

const (
	Idle Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "idle"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*p = Active
	case "idle":
		*p = Idle
	default:
		return fmt.Errorf("unknown phase: %q", b)
	}
	return nil
}

// TransitionState is the published state of the scale controller.
// Progress is the eased value, 0 whenever Phase is Idle.
type TransitionState struct {
	CurrentScale TimeScale `json:"currentScale"`
	TargetScale  TimeScale `json:"targetScale"`
	Phase        Phase     `json:"phase"`
	Progress     float64   `json:"progress"`
	StartedAt    time.Time `json:"startedAt"`
}

func (ts TransitionState) IsTransitioning() bool {
	return ts.Phase == Active
}

// GeometrySegment is one placed element of a scale layout.
// Angle is in degrees with -90 at the top, X/Y are in layout pixels.
type GeometrySegment struct {
	Index    int     `json:"index"`
	Angle    float64 `json:"angle"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// Glyph is a data marker owned by the data layer.
// When Positioned is false only Angle is meaningful.
type Glyph struct {
	ID         string  `json:"id"`
	Angle      float64 `json:"angle"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Positioned bool    `json:"positioned,omitempty"`
	Category   string  `json:"category"`
	Intensity  float64 `json:"intensity"`
}

// Glyph categories known to the ripple lifetimes.
// Anything else is accepted and treated as "other".
const (
	CategoryMood    = "mood"
	CategorySleep   = "sleep"
	CategoryWeather = "weather"
	CategoryPlan    = "plan"
)

// ActiveCollisionSet marks glyphs currently inside the detection threshold
type ActiveCollisionSet map[string]bool

// DetectionMode selects the collision strategy
type DetectionMode string

const (
	SlotScan       DetectionMode = "slot"
	PointProximity DetectionMode = "point"
)

// CollisionEvent is emitted once per continuous overlap of the now indicator and a glyph
type CollisionEvent struct {
	GlyphID   string        `json:"glyphId"`
	Category  string        `json:"category"`
	Angle     float64       `json:"angle"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Slot      int           `json:"slot"`
	Intensity float64       `json:"intensity"`
	Distance  float64       `json:"distance"`
	Mode      DetectionMode `json:"mode"`
	Timestamp time.Time     `json:"timestamp"`
}

// Ripple is the short-lived aftermath of a collision.
// Secondary ripples are the attenuated echoes on neighbouring slots.
type Ripple struct {
	ID            string        `json:"id"`
	OriginGlyphID string        `json:"originGlyphId"`
	Category      string        `json:"category"`
	Intensity     float64       `json:"intensity"`
	Slot          int           `json:"slot"`
	Secondary     bool          `json:"secondary"`
	CreatedAt     time.Time     `json:"createdAt"`
	TTL           time.Duration `json:"ttl"`
}

// ExpiresAt is the instant the ripple is retired
func (r Ripple) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.TTL)
}

// Frame is everything a renderer needs for one tick.
// All slices are copies owned by the receiver.
type Frame struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tick       uint64            `json:"tick"`
	NowAngle   float64           `json:"nowAngle"`
	Transition TransitionState   `json:"transition"`
	Layout     []GeometrySegment `json:"layout"`
	Ripples    []Ripple          `json:"ripples"`
	Events     []CollisionEvent  `json:"events"`
}
