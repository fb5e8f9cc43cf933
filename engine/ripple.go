package tempora

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	Mt "github.com/maroda/tempora/types"
)

// categoryWeight stretches ripple lifetimes; heavier categories linger
var categoryWeight = map[string]float64{
	Mt.CategoryMood:    1.0,
	Mt.CategorySleep:   0.85,
	Mt.CategoryWeather: 0.7,
	Mt.CategoryPlan:    0.55,
}

const defaultCategoryWeight = 0.5

// RippleConfig shapes ripple creation
type RippleConfig struct {
	Slots                int
	TTLMin               time.Duration
	TTLMax               time.Duration
	NeighborAttenuation  float64
	NeighborMinIntensity float64
}

// RippleBus turns collision events into ripples and retires each
// ripple exactly once through the Scheduler.
type RippleBus struct {
	cfg    RippleConfig
	sched  *Scheduler
	live   map[string]Mt.Ripple
	timers map[string]TimerID
	newID  func() string

	onCreate []func(Mt.Ripple)
	onExpire []func(Mt.Ripple)
	disposed bool
}

func NewRippleBus(cfg RippleConfig, sched *Scheduler) *RippleBus {
	return &RippleBus{
		cfg:    cfg,
		sched:  sched,
		live:   make(map[string]Mt.Ripple),
		timers: make(map[string]TimerID),
		newID:  uuid.NewString,
	}
}

// OnCreate registers a listener for every new ripple, secondary ones included
func (rb *RippleBus) OnCreate(fn func(Mt.Ripple)) {
	rb.onCreate = append(rb.onCreate, fn)
}

// OnExpire registers a listener called once per retired ripple
func (rb *RippleBus) OnExpire(fn func(Mt.Ripple)) {
	rb.onExpire = append(rb.onExpire, fn)
}

// TTL picks the lifetime from the configured range by category and intensity
func (rb *RippleBus) TTL(category string, intensity float64) time.Duration {
	w, ok := categoryWeight[category]
	if !ok {
		w = defaultCategoryWeight
	}
	span := rb.cfg.TTLMax - rb.cfg.TTLMin
	return rb.cfg.TTLMin + time.Duration(math.Round(float64(span)*clamp01(w*intensity)))
}

// Publish creates the primary ripple for ev and its attenuated neighbours
func (rb *RippleBus) Publish(ev Mt.CollisionEvent) []Mt.Ripple {
	if rb.disposed {
		return nil
	}

	created := []Mt.Ripple{rb.spawn(ev, ev.Slot, ev.Intensity, false)}

	echo := ev.Intensity * rb.cfg.NeighborAttenuation
	if echo < rb.cfg.NeighborMinIntensity {
		return created
	}

	seen := map[int]bool{ev.Slot: true}
	for _, slot := range []int{ev.Slot - 1, ev.Slot + 1} {
		slot = clampSlot(slot, rb.cfg.Slots)
		if seen[slot] {
			continue
		}
		seen[slot] = true
		created = append(created, rb.spawn(ev, slot, echo, true))
	}
	return created
}

// PublishAll handles a tick's worth of events in order
func (rb *RippleBus) PublishAll(events []Mt.CollisionEvent) []Mt.Ripple {
	var created []Mt.Ripple
	for _, ev := range events {
		created = append(created, rb.Publish(ev)...)
	}
	return created
}

func (rb *RippleBus) spawn(ev Mt.CollisionEvent, slot int, intensity float64, secondary bool) Mt.Ripple {
	r := Mt.Ripple{
		ID:            rb.newID(),
		OriginGlyphID: ev.GlyphID,
		Category:      ev.Category,
		Intensity:     intensity,
		Slot:          slot,
		Secondary:     secondary,
		CreatedAt:     ev.Timestamp,
		TTL:           rb.TTL(ev.Category, intensity),
	}
	rb.live[r.ID] = r

	id := r.ID
	rb.timers[id] = rb.sched.At(r.ExpiresAt(), func(time.Time) {
		rb.Remove(id)
	})

	for _, fn := range rb.onCreate {
		fn(r)
	}
	return r
}

// Remove retires a ripple. Ids are never reused,
// so a second call for the same id finds nothing and does nothing.
func (rb *RippleBus) Remove(id string) bool {
	r, ok := rb.live[id]
	if !ok {
		return false
	}

	if tid, ok := rb.timers[id]; ok {
		// no-op when the timer itself is what called us
		rb.sched.Cancel(tid)
		delete(rb.timers, id)
	}
	delete(rb.live, id)

	for _, fn := range rb.onExpire {
		fn(r)
	}
	return true
}

// Ripples is a snapshot of the live ripples, oldest first
func (rb *RippleBus) Ripples() []Mt.Ripple {
	out := make([]Mt.Ripple, 0, len(rb.live))
	for _, r := range rb.live {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (rb *RippleBus) Len() int {
	return len(rb.live)
}

// Dispose cancels every pending removal and drops all ripples without notifying
func (rb *RippleBus) Dispose() {
	for id, tid := range rb.timers {
		rb.sched.Cancel(tid)
		delete(rb.timers, id)
	}
	if len(rb.live) > 0 {
		slog.Debug("RippleBus disposed with live ripples", slog.Int("count", len(rb.live)))
	}
	rb.live = make(map[string]Mt.Ripple)
	rb.disposed = true
	rb.onCreate = nil
	rb.onExpire = nil
}

func clampSlot(slot, slots int) int {
	if slots <= 0 || slot < 0 {
		return 0
	}
	if slot >= slots {
		return slots - 1
	}
	return slot
}
