package tempora

import (
	"log/slog"
	"sync"
	"time"

	Me "github.com/maroda/tempora/engine"
)

// DefaultInterval is one tick at roughly 60fps
const DefaultInterval = 16 * time.Millisecond

type TickSupervisor struct {
	View     *View
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

// NewTickSupervisor owns the goroutine that steps the View.
// They are strongly coupled, one knows about the other
func (v *View) NewTickSupervisor(interval time.Duration) *TickSupervisor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ts := &TickSupervisor{
		View:     v,
		Interval: interval,
	}
	v.Supervisor = ts
	return ts
}

// ReloadConfigFile swaps in the glyphs from a config file while ticking is paused.
// Engine options other than glyphs need a restart.
func (v *View) ReloadConfigFile(filename string) error {
	if v.Supervisor != nil {
		v.Supervisor.Stop()
		defer v.Supervisor.Start()
	}

	_, glyphs, err := Me.ResolveConfig(filename)
	if err != nil {
		slog.Error("Config reload failed, keeping current glyphs", slog.Any("Error", err))
		return err
	}
	if err := v.FlushOutputs(); err != nil {
		slog.Warn("Outputs not flushed before reload", slog.Any("Error", err))
	}
	accepted, rejected := v.Engine.SetGlyphs(glyphs)
	slog.Info("Config reloaded",
		slog.String("file", filename),
		slog.Int("accepted", accepted),
		slog.Int("rejected", rejected))
	return nil
}

// Start the TickSupervisor
func (p *TickSupervisor) Start() {
	p.StopChan = make(chan struct{})
	p.Ticker = time.NewTicker(p.Interval)

	p.WG.Add(1)
	go func(stop chan struct{}, ticker *time.Ticker) {
		defer p.WG.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.step()
			case <-stop:
				return
			}
		}
	}(p.StopChan, p.Ticker)
}

func (p *TickSupervisor) step() {
	defer recoverTick()
	p.View.Step()
}

// Stop the TickSupervisor, safe to call more than once
func (p *TickSupervisor) Stop() {
	if p.StopChan != nil {
		close(p.StopChan)
		p.WG.Wait()
		p.StopChan = nil
	}
}

// Restart the TickSupervisor
func (p *TickSupervisor) Restart() {
	p.Stop()
	p.Start()
}
