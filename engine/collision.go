package tempora

import (
	"math"
	"time"

	Mt "github.com/maroda/tempora/types"
)

// SlotScanner sweeps K evenly spaced lines, rotating with the now angle,
// across the glyph ring. A glyph collides when the nearest line comes within
// Threshold degrees and its weighted intensity clears MinIntensity.
type SlotScanner struct {
	Slots        int
	Threshold    float64 // degrees
	MinIntensity float64
}

// ScanResult is the new debounce state plus what changed this tick
type ScanResult struct {
	Active Mt.ActiveCollisionSet
	Events []Mt.CollisionEvent
	Exited []string // glyph ids that left the threshold and are armed again
}

// Scan is a pure function of (active, glyphs, nowAngle): the input set is
// not modified and the returned set replaces it for the next tick.
func (s SlotScanner) Scan(active Mt.ActiveCollisionSet, glyphs []Mt.Glyph, nowAngle float64, now time.Time) ScanResult {
	res := ScanResult{Active: make(Mt.ActiveCollisionSet, len(active))}
	if s.Slots <= 0 || s.Threshold <= 0 {
		for id := range active {
			res.Exited = append(res.Exited, id)
		}
		return res
	}

	spacing := 360.0 / float64(s.Slots)
	present := make(map[string]struct{}, len(glyphs))

	for _, g := range glyphs {
		present[g.ID] = struct{}{}

		slot, d := s.nearestSlot(nowAngle, g.Angle, spacing)
		if d > s.Threshold {
			if active[g.ID] {
				res.Exited = append(res.Exited, g.ID)
			}
			continue
		}

		// still overlapping: stay armed-off, no new event
		if active[g.ID] {
			res.Active[g.ID] = true
			continue
		}

		proximity := 1 - d/s.Threshold
		final := proximity * g.Intensity
		if final <= s.MinIntensity {
			continue
		}

		res.Active[g.ID] = true
		res.Events = append(res.Events, Mt.CollisionEvent{
			GlyphID:   g.ID,
			Category:  g.Category,
			Angle:     g.Angle,
			X:         g.X,
			Y:         g.Y,
			Slot:      slot,
			Intensity: final,
			Distance:  d,
			Mode:      Mt.SlotScan,
			Timestamp: now,
		})
	}

	// glyphs that vanished from the registry are released too
	for id, on := range active {
		if _, ok := present[id]; on && !ok {
			res.Exited = append(res.Exited, id)
		}
	}

	return res
}

// nearestSlot finds the scan line closest to the glyph; ties go to the lower index
func (s SlotScanner) nearestSlot(nowAngle, glyphAngle, spacing float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for i := 0; i < s.Slots; i++ {
		line := nowAngle + float64(i)*spacing
		d := AngularDistance(line, glyphAngle)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// PointState is the debounce memory of the point-proximity detector.
// LastID is the most recently triggered glyph; it is cleared by the owner
// after a grace window with nothing in range.
type PointState struct {
	LastID  string
	InRange map[string]bool
}

// PointScanner compares the tip of the now indicator, at Radius from the
// center, with each glyph's own position using straight-line distance.
type PointScanner struct {
	Geometry        Geometry
	DetectionRadius float64 // pixels
	Slots           int     // only used to label events with a ring slot
}

// Tip is where the now indicator ends
func (p PointScanner) Tip(nowAngle float64) (float64, float64) {
	return PolarToXY(p.Geometry.CenterX, p.Geometry.CenterY, p.Geometry.Radius, nowAngle)
}

// Position of a glyph; unpositioned glyphs sit on the indicator's ring
func (p PointScanner) Position(g Mt.Glyph) (float64, float64) {
	if g.Positioned {
		return g.X, g.Y
	}
	return PolarToXY(p.Geometry.CenterX, p.Geometry.CenterY, p.Geometry.Radius, g.Angle)
}

// Scan returns the next state, the new events, and whether any glyph is in range.
// A glyph fires when it enters range, unless it is the last one played.
func (p PointScanner) Scan(state PointState, glyphs []Mt.Glyph, nowAngle float64, now time.Time) (PointState, []Mt.CollisionEvent, bool) {
	next := PointState{LastID: state.LastID, InRange: make(map[string]bool)}
	if p.DetectionRadius <= 0 {
		return next, nil, false
	}

	tx, ty := p.Tip(nowAngle)
	var events []Mt.CollisionEvent

	for _, g := range glyphs {
		gx, gy := p.Position(g)
		dist := math.Hypot(gx-tx, gy-ty)
		if dist > p.DetectionRadius {
			continue
		}
		next.InRange[g.ID] = true
		if state.InRange[g.ID] || g.ID == state.LastID {
			continue
		}

		proximity := 1 - dist/p.DetectionRadius
		events = append(events, Mt.CollisionEvent{
			GlyphID:   g.ID,
			Category:  g.Category,
			Angle:     g.Angle,
			X:         gx,
			Y:         gy,
			Slot:      p.slotOf(g.Angle),
			Intensity: proximity * g.Intensity,
			Distance:  dist,
			Mode:      Mt.PointProximity,
			Timestamp: now,
		})
		next.LastID = g.ID
	}

	return next, events, len(next.InRange) > 0
}

// slotOf is the fixed ring slot, counted clockwise from the top, holding angle
func (p PointScanner) slotOf(angle float64) int {
	if p.Slots <= 0 {
		return 0
	}
	spacing := 360.0 / float64(p.Slots)
	slot := int(NormalizeDegrees(angle-TopOffset) / spacing)
	if slot >= p.Slots {
		slot = p.Slots - 1
	}
	return slot
}
