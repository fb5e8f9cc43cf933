package tempora

import (
	"log/slog"
	"time"

	Mt "github.com/maroda/tempora/types"
)

// TransitionUpdate is published on every controller step
// and carries everything Interpolate needs.
type TransitionUpdate struct {
	From     Mt.TimeScale
	To       Mt.TimeScale
	Raw      float64 // linear progress
	Progress float64 // eased progress
	Phase    int     // section of the easing curve, 1-3
}

// TransitionController drives scale changes: idle -> active -> idle.
// One transition at a time; requests while active are dropped, not queued.
// Steps are scheduled on the shared Scheduler every TickInterval.
type TransitionController struct {
	state    Mt.TransitionState
	sched    *Scheduler
	pending  TimerID
	duration time.Duration
	interval time.Duration
	disposed bool

	onUpdate   []func(TransitionUpdate)
	onComplete []func(from, to Mt.TimeScale)
}

func NewTransitionController(initial Mt.TimeScale, sched *Scheduler, duration, interval time.Duration) *TransitionController {
	if duration <= 0 {
		duration = 1500 * time.Millisecond
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TransitionController{
		state: Mt.TransitionState{
			CurrentScale: initial,
			TargetScale:  initial,
			Phase:        Mt.Idle,
		},
		sched:    sched,
		duration: duration,
		interval: interval,
	}
}

// OnUpdate registers a listener for every step, the final one included
func (tc *TransitionController) OnUpdate(fn func(TransitionUpdate)) {
	tc.onUpdate = append(tc.onUpdate, fn)
}

// OnComplete registers a listener fired once the target scale is committed
func (tc *TransitionController) OnComplete(fn func(from, to Mt.TimeScale)) {
	tc.onComplete = append(tc.onComplete, fn)
}

// State is a copy of the current transition state
func (tc *TransitionController) State() Mt.TransitionState {
	return tc.state
}

func (tc *TransitionController) IsTransitioning() bool {
	return tc.state.Phase == Mt.Active
}

// Request starts a transition to target at now.
// It returns false, leaving the state untouched, when a transition is
// already running, the target is the current scale, or the controller is gone.
func (tc *TransitionController) Request(target Mt.TimeScale, now time.Time) bool {
	switch {
	case tc.disposed:
		return false
	case !target.Valid():
		slog.Warn("Rejected scale change to invalid scale", slog.Int("target", int(target)))
		return false
	case tc.state.Phase == Mt.Active:
		slog.Debug("Scale change rejected, transition in progress",
			slog.String("current", tc.state.CurrentScale.String()),
			slog.String("target", tc.state.TargetScale.String()),
			slog.String("requested", target.String()))
		return false
	case target == tc.state.CurrentScale:
		return false
	}

	tc.state.TargetScale = target
	tc.state.Phase = Mt.Active
	tc.state.Progress = 0
	tc.state.StartedAt = now

	// first step on the very next tick
	tc.pending = tc.sched.At(now, tc.step)
	return true
}

// step is the scheduled tick of an active transition
func (tc *TransitionController) step(now time.Time) {
	tc.pending = 0
	if tc.disposed || tc.state.Phase != Mt.Active {
		return
	}

	raw := clamp01(float64(now.Sub(tc.state.StartedAt)) / float64(tc.duration))
	eased := EaseTriplePhase(raw)
	// float rounding at the phase seams must not step backwards
	if eased < tc.state.Progress {
		eased = tc.state.Progress
	}
	tc.state.Progress = eased

	update := TransitionUpdate{
		From:     tc.state.CurrentScale,
		To:       tc.state.TargetScale,
		Raw:      raw,
		Progress: eased,
		Phase:    TransitionPhase(raw),
	}
	for _, fn := range tc.onUpdate {
		fn(update)
	}

	if raw >= 1 {
		tc.commit()
		return
	}
	tc.pending = tc.sched.At(now.Add(tc.interval), tc.step)
}

func (tc *TransitionController) commit() {
	from := tc.state.CurrentScale
	to := tc.state.TargetScale
	tc.state = Mt.TransitionState{
		CurrentScale: to,
		TargetScale:  to,
		Phase:        Mt.Idle,
	}
	slog.Debug("Scale transition complete", slog.String("from", from.String()), slog.String("to", to.String()))
	for _, fn := range tc.onComplete {
		fn(from, to)
	}
}

// Cancel aborts an active transition and stays on the current scale.
// It reports whether there was anything to cancel.
func (tc *TransitionController) Cancel() bool {
	if tc.state.Phase != Mt.Active {
		return false
	}
	if tc.pending != 0 {
		tc.sched.Cancel(tc.pending)
		tc.pending = 0
	}
	tc.state = Mt.TransitionState{
		CurrentScale: tc.state.CurrentScale,
		TargetScale:  tc.state.CurrentScale,
		Phase:        Mt.Idle,
	}
	return true
}

// Dispose cancels the pending step; no listener fires afterwards
func (tc *TransitionController) Dispose() {
	tc.Cancel()
	tc.disposed = true
	tc.onUpdate = nil
	tc.onComplete = nil
}
