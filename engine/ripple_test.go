package tempora_test

import (
	"testing"
	"time"

	Me "github.com/maroda/tempora/engine"
	Mt "github.com/maroda/tempora/types"
)

func testRippleConfig() Me.RippleConfig {
	return Me.RippleConfig{
		Slots:                24,
		TTLMin:               1000 * time.Millisecond,
		TTLMax:               2500 * time.Millisecond,
		NeighborAttenuation:  0.3,
		NeighborMinIntensity: 0.05,
	}
}

func TestRippleBus_TTL(t *testing.T) {
	bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())

	tests := []struct {
		name      string
		category  string
		intensity float64
		want      time.Duration
	}{
		{"Full mood lives longest", Mt.CategoryMood, 1.0, 2500 * time.Millisecond},
		{"Silent plan lives shortest", Mt.CategoryPlan, 0, 1000 * time.Millisecond},
		{"Half weather", Mt.CategoryWeather, 0.5, 1525 * time.Millisecond},
		{"Unknown category uses the default weight", "tide", 1.0, 1750 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bus.TTL(tt.category, tt.intensity)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRippleBus_Publish(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Strong collision spawns two neighbours", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())
		got := bus.Publish(Mt.CollisionEvent{GlyphID: "g", Category: Mt.CategoryMood, Slot: 5, Intensity: 0.8, Timestamp: at})

		assertInt(t, len(got), 3)
		assertBool(t, got[0].Secondary, false)
		assertInt(t, got[0].Slot, 5)
		assertInt(t, got[1].Slot, 4)
		assertInt(t, got[2].Slot, 6)
		for _, r := range got[1:] {
			assertBool(t, r.Secondary, true)
			assertFloat(t, r.Intensity, 0.24, 1e-9)
			assertString(t, r.OriginGlyphID, "g")
		}
		assertInt(t, bus.Len(), 3)
	})

	t.Run("Neighbours clamp at the ring edges", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())

		low := bus.Publish(Mt.CollisionEvent{GlyphID: "a", Slot: 0, Intensity: 1, Timestamp: at})
		assertInt(t, len(low), 2)
		assertInt(t, low[1].Slot, 1)

		high := bus.Publish(Mt.CollisionEvent{GlyphID: "b", Slot: 23, Intensity: 1, Timestamp: at})
		assertInt(t, len(high), 2)
		assertInt(t, high[1].Slot, 22)
	})

	t.Run("Faint echoes are suppressed", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())
		got := bus.Publish(Mt.CollisionEvent{GlyphID: "c", Slot: 10, Intensity: 0.1, Timestamp: at})
		assertInt(t, len(got), 1)
	})

	t.Run("Every ripple gets its own id", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())
		seen := map[string]bool{}
		for i := 0; i < 10; i++ {
			for _, r := range bus.Publish(Mt.CollisionEvent{GlyphID: "d", Slot: 12, Intensity: 1, Timestamp: at}) {
				if seen[r.ID] {
					t.Fatalf("duplicate ripple id %s", r.ID)
				}
				seen[r.ID] = true
			}
		}
		assertInt(t, len(seen), 30)
	})

	t.Run("Create listeners see every ripple", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())
		created := 0
		bus.OnCreate(func(Mt.Ripple) { created++ })
		bus.PublishAll([]Mt.CollisionEvent{
			{GlyphID: "e", Slot: 3, Intensity: 1, Timestamp: at},
			{GlyphID: "f", Slot: 9, Intensity: 0.1, Timestamp: at},
		})
		assertInt(t, created, 4)
	})
}

func TestRippleBus_Expiry(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 16 * time.Millisecond

	t.Run("Each ripple expires exactly once within a tick of its deadline", func(t *testing.T) {
		sched := Me.NewScheduler()
		bus := Me.NewRippleBus(testRippleConfig(), sched)

		expired := map[string]int{}
		when := map[string]time.Time{}
		bus.OnExpire(func(r Mt.Ripple) {
			expired[r.ID]++
		})

		created := bus.Publish(Mt.CollisionEvent{GlyphID: "g", Category: Mt.CategorySleep, Slot: 8, Intensity: 0.9, Timestamp: start})

		for now := start; now.Before(start.Add(4 * time.Second)); now = now.Add(tick) {
			sched.Advance(now)
			for _, r := range created {
				if _, ok := when[r.ID]; !ok && expired[r.ID] > 0 {
					when[r.ID] = now
				}
			}
		}

		for _, r := range created {
			assertInt(t, expired[r.ID], 1)
			lag := when[r.ID].Sub(r.ExpiresAt())
			if lag < 0 || lag >= tick {
				t.Errorf("ripple %s expired %v after its deadline", r.ID, lag)
			}
		}
		assertInt(t, bus.Len(), 0)
		assertInt(t, sched.Len(), 0)
	})

	t.Run("Remove is idempotent and cancels the timer", func(t *testing.T) {
		sched := Me.NewScheduler()
		bus := Me.NewRippleBus(testRippleConfig(), sched)
		expired := 0
		bus.OnExpire(func(Mt.Ripple) { expired++ })

		r := bus.Publish(Mt.CollisionEvent{GlyphID: "h", Slot: 1, Intensity: 0.1, Timestamp: start})[0]
		assertBool(t, bus.Remove(r.ID), true)
		assertBool(t, bus.Remove(r.ID), false)
		assertInt(t, sched.Len(), 0)

		sched.Advance(start.Add(10 * time.Second))
		assertInt(t, expired, 1)
	})

	t.Run("Ripples are listed oldest first", func(t *testing.T) {
		bus := Me.NewRippleBus(testRippleConfig(), Me.NewScheduler())
		bus.Publish(Mt.CollisionEvent{GlyphID: "late", Slot: 4, Intensity: 0.1, Timestamp: start.Add(time.Second)})
		bus.Publish(Mt.CollisionEvent{GlyphID: "early", Slot: 4, Intensity: 0.1, Timestamp: start})

		got := bus.Ripples()
		assertInt(t, len(got), 2)
		assertString(t, got[0].OriginGlyphID, "early")
	})

	t.Run("Dispose drops everything quietly", func(t *testing.T) {
		sched := Me.NewScheduler()
		bus := Me.NewRippleBus(testRippleConfig(), sched)
		expired := 0
		bus.OnExpire(func(Mt.Ripple) { expired++ })

		bus.Publish(Mt.CollisionEvent{GlyphID: "i", Slot: 12, Intensity: 1, Timestamp: start})
		bus.Dispose()

		assertInt(t, bus.Len(), 0)
		assertInt(t, sched.Len(), 0)
		sched.Advance(start.Add(10 * time.Second))
		assertInt(t, expired, 0)
		assertInt(t, len(bus.Publish(Mt.CollisionEvent{GlyphID: "j", Intensity: 1, Timestamp: start})), 0)
	})
}
