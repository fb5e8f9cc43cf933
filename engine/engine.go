package tempora

import (
	"log/slog"
	"sync"
	"time"

	Mt "github.com/maroda/tempora/types"
)

// Engine is the single writer for all timeline state.
// Tick, RequestScale and SetGlyphs serialize on MU, so the host may call
// them from different goroutines. Listeners registered with the On* methods
// run inside the lock and must not call back into the Engine; Subscribe
// observers run after the lock is released.
type Engine struct {
	MU sync.Mutex

	cfg     Config
	loc     *time.Location
	sched   *Scheduler
	control *TransitionController
	bus     *RippleBus
	layouts *layoutCache
	slots   SlotScanner
	points  PointScanner
	grace   time.Duration

	active     Mt.ActiveCollisionSet
	point      PointState
	graceTimer TimerID
	glyphs     []Mt.Glyph

	tick      uint64
	last      Mt.Frame
	observers []func(Mt.Frame)
	disposed  bool
}

// NewEngine validates cfg and builds every component around one Scheduler
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sched := NewScheduler()
	geo := cfg.Geometry()

	e := &Engine{
		cfg:   cfg,
		loc:   loc,
		sched: sched,
		control: NewTransitionController(cfg.Scale(), sched,
			ms(cfg.TransitionDurationMs), ms(cfg.TransitionTickMs)),
		bus:     NewRippleBus(cfg.RippleConfig(), sched),
		layouts: newLayoutCache(geo),
		slots: SlotScanner{
			Slots:        cfg.SlotCount,
			Threshold:    cfg.DetectionRadiusDegrees,
			MinIntensity: cfg.MinCollisionIntensity,
		},
		points: PointScanner{
			Geometry:        geo,
			DetectionRadius: cfg.DetectionRadiusPixels,
			Slots:           cfg.SlotCount,
		},
		grace:  ms(cfg.GraceWindowMs),
		active: make(Mt.ActiveCollisionSet),
	}

	slog.Info("Engine ready",
		slog.String("mode", string(cfg.DetectionMode)),
		slog.String("scale", cfg.Scale().String()),
		slog.Int("slots", cfg.SlotCount),
		slog.String("timezone", loc.String()))

	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Tick runs one cooperative step at now:
// due timers, the now angle, collision detection, ripples, then the snapshot.
// After Dispose it returns the last frame and changes nothing.
func (e *Engine) Tick(now time.Time) Mt.Frame {
	e.MU.Lock()
	if e.disposed {
		frame := e.last
		e.MU.Unlock()
		return frame
	}

	now = now.In(e.loc)
	e.tick++

	// expiries, transition steps and the grace window land first
	e.sched.Advance(now)

	state := e.control.State()
	nowAngle := AngleFor(state.CurrentScale, now)
	events := e.detect(nowAngle, now)
	e.bus.PublishAll(events)

	frame := Mt.Frame{
		Timestamp:  now,
		Tick:       e.tick,
		NowAngle:   nowAngle,
		Transition: state,
		Layout:     e.layout(state, now),
		Ripples:    e.bus.Ripples(),
		Events:     events,
	}
	e.last = frame
	observers := e.observers
	e.MU.Unlock()

	for _, fn := range observers {
		fn(frame)
	}
	return frame
}

func (e *Engine) detect(nowAngle float64, now time.Time) []Mt.CollisionEvent {
	if e.cfg.DetectionMode == Mt.PointProximity {
		next, events, inRange := e.points.Scan(e.point, e.glyphs, nowAngle, now)
		e.point = next
		e.armGrace(inRange, now)
		return events
	}

	res := e.slots.Scan(e.active, e.glyphs, nowAngle, now)
	e.active = res.Active
	return res.Events
}

// armGrace clears the last played glyph once nothing has been
// in range for the grace window, and calls that off when something returns
func (e *Engine) armGrace(inRange bool, now time.Time) {
	if inRange {
		if e.graceTimer != 0 {
			e.sched.Cancel(e.graceTimer)
			e.graceTimer = 0
		}
		return
	}
	if e.point.LastID == "" || e.graceTimer != 0 {
		return
	}
	e.graceTimer = e.sched.At(now.Add(e.grace), func(time.Time) {
		e.point.LastID = ""
		e.graceTimer = 0
	})
}

func (e *Engine) layout(state Mt.TransitionState, now time.Time) []Mt.GeometrySegment {
	from := e.layouts.get(state.CurrentScale, now)
	if !state.IsTransitioning() {
		return append([]Mt.GeometrySegment(nil), from...)
	}
	to := e.layouts.get(state.TargetScale, now)
	return Interpolate(from, to, state.Progress)
}

// RequestScale asks for a transition to target; false when it was rejected
func (e *Engine) RequestScale(target Mt.TimeScale, now time.Time) bool {
	e.MU.Lock()
	defer e.MU.Unlock()
	if e.disposed {
		return false
	}
	return e.control.Request(target, now.In(e.loc))
}

// ZoomIn requests the next finer scale
func (e *Engine) ZoomIn(now time.Time) bool {
	return e.RequestScale(e.Transition().CurrentScale.ZoomIn(), now)
}

// ZoomOut requests the next coarser scale
func (e *Engine) ZoomOut(now time.Time) bool {
	return e.RequestScale(e.Transition().CurrentScale.ZoomOut(), now)
}

// CancelTransition stays on the current scale
func (e *Engine) CancelTransition() bool {
	e.MU.Lock()
	defer e.MU.Unlock()
	return e.control.Cancel()
}

func (e *Engine) Transition() Mt.TransitionState {
	e.MU.Lock()
	defer e.MU.Unlock()
	return e.control.State()
}

// SetGlyphs replaces the registry snapshot used from the next tick on
func (e *Engine) SetGlyphs(glyphs []Mt.Glyph) (accepted, rejected int) {
	clean, rejected := SanitizeGlyphs(glyphs)

	e.MU.Lock()
	defer e.MU.Unlock()
	e.glyphs = clean
	return len(clean), rejected
}

// Glyphs is a copy of the current registry snapshot
func (e *Engine) Glyphs() []Mt.Glyph {
	e.MU.Lock()
	defer e.MU.Unlock()
	return append([]Mt.Glyph(nil), e.glyphs...)
}

// Ripples is a copy of the live ripples
func (e *Engine) Ripples() []Mt.Ripple {
	e.MU.Lock()
	defer e.MU.Unlock()
	return e.bus.Ripples()
}

// Snapshot is a deep copy of the most recent frame
func (e *Engine) Snapshot() Mt.Frame {
	e.MU.Lock()
	defer e.MU.Unlock()
	f := e.last
	f.Layout = append([]Mt.GeometrySegment(nil), f.Layout...)
	f.Ripples = append([]Mt.Ripple(nil), f.Ripples...)
	f.Events = append([]Mt.CollisionEvent(nil), f.Events...)
	return f
}

// Subscribe adds an observer called with every frame, outside the lock.
// Frames are shared between observers and must be treated as read-only.
func (e *Engine) Subscribe(fn func(Mt.Frame)) {
	e.MU.Lock()
	defer e.MU.Unlock()
	// copy on write, Tick iterates a previous slice without the lock
	next := make([]func(Mt.Frame), len(e.observers), len(e.observers)+1)
	copy(next, e.observers)
	e.observers = append(next, fn)
}

// OnTransition registers listeners on the scale controller
func (e *Engine) OnTransition(update func(TransitionUpdate), complete func(from, to Mt.TimeScale)) {
	e.MU.Lock()
	defer e.MU.Unlock()
	if update != nil {
		e.control.OnUpdate(update)
	}
	if complete != nil {
		e.control.OnComplete(complete)
	}
}

// OnRipple registers listeners on the ripple bus
func (e *Engine) OnRipple(create, expire func(Mt.Ripple)) {
	e.MU.Lock()
	defer e.MU.Unlock()
	if create != nil {
		e.bus.OnCreate(create)
	}
	if expire != nil {
		e.bus.OnExpire(expire)
	}
}

// Pending counts scheduled callbacks, zero once disposed
func (e *Engine) Pending() int {
	e.MU.Lock()
	defer e.MU.Unlock()
	return e.sched.Len()
}

// Dispose cancels every pending callback; later ticks are no-ops
func (e *Engine) Dispose() {
	e.MU.Lock()
	defer e.MU.Unlock()
	if e.disposed {
		return
	}
	e.control.Dispose()
	e.bus.Dispose()
	if e.graceTimer != 0 {
		e.sched.Cancel(e.graceTimer)
		e.graceTimer = 0
	}
	e.sched.Dispose()
	e.observers = nil
	e.disposed = true
	slog.Info("Engine disposed", slog.Uint64("ticks", e.tick))
}
