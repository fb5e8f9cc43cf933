package tempora_test

import (
	"testing"
	"time"

	Me "github.com/maroda/tempora/engine"
	Mt "github.com/maroda/tempora/types"
)

func TestSlotScanner_Scan(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scanner := Me.SlotScanner{Slots: 24, Threshold: 8, MinIntensity: 0.1}

	t.Run("Glyph two degrees from the now line collides", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "mood-1", Angle: 92, Category: Mt.CategoryMood, Intensity: 1.0}}
		res := scanner.Scan(Mt.ActiveCollisionSet{}, glyphs, 90, now)

		assertInt(t, len(res.Events), 1)
		ev := res.Events[0]
		assertString(t, ev.GlyphID, "mood-1")
		assertFloat(t, ev.Distance, 2, 1e-9)
		assertFloat(t, ev.Intensity, 0.75, 1e-9)
		assertInt(t, ev.Slot, 0)
		assertBool(t, res.Active["mood-1"], true)
		if !ev.Timestamp.Equal(now) {
			t.Errorf("event timestamp %v, want %v", ev.Timestamp, now)
		}
	})

	t.Run("Distance wraps across the top of the circle", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "sleep-1", Angle: 359, Intensity: 1.0}}
		res := scanner.Scan(nil, glyphs, 2, now)
		assertInt(t, len(res.Events), 1)
		assertFloat(t, res.Events[0].Distance, 3, 1e-9)
		assertFloat(t, res.Events[0].Intensity, 1-3.0/8.0, 1e-9)
	})

	t.Run("Any slot can catch a glyph", func(t *testing.T) {
		// slot 6 sits a quarter turn ahead of the now line
		glyphs := []Mt.Glyph{{ID: "plan-1", Angle: 181, Intensity: 1.0}}
		res := scanner.Scan(nil, glyphs, 90, now)
		assertInt(t, len(res.Events), 1)
		assertInt(t, res.Events[0].Slot, 6)
	})

	t.Run("Weak glyphs never fire and are not marked", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "faint", Angle: 90, Intensity: 0.1}}
		res := scanner.Scan(nil, glyphs, 90, now)
		assertInt(t, len(res.Events), 0)
		assertBool(t, res.Active["faint"], false)
	})

	t.Run("A glyph in range for many ticks fires once", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "mood-2", Angle: 92, Intensity: 1.0}}
		active := Mt.ActiveCollisionSet{}
		total := 0
		for i := 0; i < 50; i++ {
			res := scanner.Scan(active, glyphs, 90+float64(i)*0.05, now.Add(time.Duration(i)*16*time.Millisecond))
			active = res.Active
			total += len(res.Events)
		}
		assertInt(t, total, 1)
	})

	t.Run("Leaving the threshold re-arms the glyph", func(t *testing.T) {
		narrow := Me.SlotScanner{Slots: 24, Threshold: 5, MinIntensity: 0.1}
		glyphs := []Mt.Glyph{{ID: "weather-1", Angle: 92, Intensity: 1.0}}

		res := narrow.Scan(nil, glyphs, 90, now)
		assertInt(t, len(res.Events), 1)

		// lines at 99.5 and 84.5 are both 7.5° away
		res = narrow.Scan(res.Active, glyphs, 99.5, now)
		assertInt(t, len(res.Events), 0)
		assertInt(t, len(res.Exited), 1)
		assertBool(t, res.Active["weather-1"], false)

		res = narrow.Scan(res.Active, glyphs, 91, now)
		assertInt(t, len(res.Events), 1)
	})

	t.Run("The previous set is left untouched", func(t *testing.T) {
		active := Mt.ActiveCollisionSet{"gone": true}
		glyphs := []Mt.Glyph{{ID: "new", Angle: 90, Intensity: 1}}
		res := scanner.Scan(active, glyphs, 90, now)

		assertBool(t, active["new"], false)
		assertBool(t, active["gone"], true)
		assertBool(t, res.Active["gone"], false)
		assertInt(t, len(res.Exited), 1)
	})

	t.Run("No glyphs means no events", func(t *testing.T) {
		res := scanner.Scan(nil, nil, 90, now)
		assertInt(t, len(res.Events), 0)
		assertInt(t, len(res.Active), 0)
	})

	t.Run("Zero slots produce nothing", func(t *testing.T) {
		empty := Me.SlotScanner{}
		res := empty.Scan(nil, []Mt.Glyph{{ID: "a", Angle: 90, Intensity: 1}}, 90, now)
		assertInt(t, len(res.Events), 0)
	})
}

func TestPointScanner_Scan(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	scanner := Me.PointScanner{
		Geometry:        Me.NewGeometry(250, 250, 200),
		DetectionRadius: 18,
		Slots:           24,
	}

	t.Run("Tip of the indicator at the top", func(t *testing.T) {
		x, y := scanner.Tip(-90)
		assertFloat(t, x, 250, 1e-9)
		assertFloat(t, y, 50, 1e-9)
	})

	t.Run("Positioned glyph near the tip collides", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "p1", X: 255, Y: 50, Positioned: true, Intensity: 1}}
		state, events, inRange := scanner.Scan(Me.PointState{}, glyphs, -90, now)

		assertBool(t, inRange, true)
		assertInt(t, len(events), 1)
		assertFloat(t, events[0].Distance, 5, 1e-9)
		assertFloat(t, events[0].Intensity, 1-5.0/18.0, 1e-9)
		assertString(t, state.LastID, "p1")
	})

	t.Run("Unpositioned glyph sits on the indicator ring", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "a1", Angle: -90, Intensity: 1}}
		_, events, _ := scanner.Scan(Me.PointState{}, glyphs, -90, now)
		assertInt(t, len(events), 1)
		assertInt(t, events[0].Slot, 0)
		assertFloat(t, events[0].Intensity, 1, 1e-9)
	})

	t.Run("Staying in range does not repeat", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "p2", X: 250, Y: 52, Positioned: true, Intensity: 1}}
		state := Me.PointState{}
		total := 0
		for i := 0; i < 20; i++ {
			var events []Mt.CollisionEvent
			state, events, _ = scanner.Scan(state, glyphs, -90, now)
			total += len(events)
		}
		assertInt(t, total, 1)
	})

	t.Run("The last played glyph waits for the grace window", func(t *testing.T) {
		glyphs := []Mt.Glyph{{ID: "p3", X: 250, Y: 50, Positioned: true, Intensity: 1}}
		state, _, _ := scanner.Scan(Me.PointState{}, glyphs, -90, now)

		// swing away, three o'clock is far from the glyph
		state, events, inRange := scanner.Scan(state, glyphs, 0, now)
		assertBool(t, inRange, false)
		assertInt(t, len(events), 0)
		assertString(t, state.LastID, "p3")

		state, events, _ = scanner.Scan(state, glyphs, -90, now)
		assertInt(t, len(events), 0)

		// what the grace timer does
		state.LastID = ""
		state, _, _ = scanner.Scan(state, glyphs, 0, now)
		_, events, _ = scanner.Scan(state, glyphs, -90, now)
		assertInt(t, len(events), 1)
	})

	t.Run("Other glyphs still fire while one is remembered", func(t *testing.T) {
		glyphs := []Mt.Glyph{
			{ID: "first", X: 250, Y: 50, Positioned: true, Intensity: 1},
		}
		state, _, _ := scanner.Scan(Me.PointState{}, glyphs, -90, now)

		more := append(glyphs, Mt.Glyph{ID: "second", X: 252, Y: 48, Positioned: true, Intensity: 1})
		state, events, _ := scanner.Scan(state, more, -90, now)
		assertInt(t, len(events), 1)
		assertString(t, events[0].GlyphID, "second")
		assertString(t, state.LastID, "second")
	})

	t.Run("Empty registry is quiet", func(t *testing.T) {
		_, events, inRange := scanner.Scan(Me.PointState{}, nil, -90, now)
		assertInt(t, len(events), 0)
		assertBool(t, inRange, false)
	})
}
