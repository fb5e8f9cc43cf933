package tempora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	Me "github.com/maroda/tempora/engine"
	Mo "github.com/maroda/tempora/obvy"
	Mp "github.com/maroda/tempora/plugin"
	Mt "github.com/maroda/tempora/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	statusRows  = 2
	glyphRadius = 0.82 // glyphs sit just inside the ring
)

// View drives the Engine from a ticker and shows each Frame.
// Screen is optional; headless mode only serves HTTP.
type View struct {
	Engine     *Me.Engine         // the timeline itself
	Clock      Me.TimeProvider    // read once per tick
	Screen     tcell.Screen       // the screen itself
	Stats      *Mo.StatsInternal  // Internal status for prometheus
	Supervisor *TickSupervisor    // runs Step on an interval
	server     *http.Server       // API, websocket and metrics server
	started    time.Time          // for the status line
	drawMU     sync.Mutex         // one painter at a time

	MU         sync.Mutex         // guards Outputs and collisions
	Outputs    []Mp.OutputAdapter // collision stream consumers
	collisions uint64             // total collision events seen
}

// NewView wires stats and the collision fan-out onto an Engine
func NewView(e *Me.Engine, clock Me.TimeProvider, screen tcell.Screen) *View {
	if clock == nil {
		loc, _ := e.Config().Location()
		clock = Me.NewWallClock(loc)
	}
	v := &View{
		Engine:  e,
		Clock:   clock,
		Screen:  screen,
		Stats:   Mo.NewStatsInternal(),
		started: clock.Now(),
	}

	e.OnRipple(
		func(r Mt.Ripple) { v.Stats.RecRippleCreated(r.Secondary) },
		func(Mt.Ripple) { v.Stats.RecRippleExpired() },
	)
	e.OnTransition(nil, func(from, to Mt.TimeScale) {
		v.Stats.RecTransition(from.String(), to.String(), "completed")
	})
	e.Subscribe(v.Observe)

	return v
}

// AddOutput attaches another consumer of the collision stream
func (v *View) AddOutput(out Mp.OutputAdapter) {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.Outputs = append(v.Outputs, out)
}

// Observe hands a frame's collisions to stats and every output.
// Output failures are logged and counted, never fatal.
func (v *View) Observe(frame Mt.Frame) {
	if len(frame.Events) == 0 {
		return
	}

	v.MU.Lock()
	v.collisions += uint64(len(frame.Events))
	outputs := v.Outputs
	v.MU.Unlock()

	for i := range frame.Events {
		ev := frame.Events[i]
		v.Stats.RecCollision(string(ev.Mode), ev.Category)
		for _, out := range outputs {
			if err := out.WriteCollision(&ev); err != nil {
				slog.Error("Output write failed",
					slog.String("output", out.Type()),
					slog.String("glyph", ev.GlyphID),
					slog.Any("Error", err))
				v.Stats.RecOutputError(out.Type())
			}
		}
	}
}

// Collisions is the running total of collision events
func (v *View) Collisions() uint64 {
	v.MU.Lock()
	defer v.MU.Unlock()
	return v.collisions
}

// Step runs one engine tick at the clock's time and repaints
func (v *View) Step() Mt.Frame {
	start := time.Now()
	frame := v.Engine.Tick(v.Clock.Now())
	v.Stats.RecTickTimer(time.Since(start))

	if v.Screen != nil {
		v.UpdateScreen(frame)
	}
	return frame
}

// RequestScale is shared by the keyboard and the API
func (v *View) RequestScale(target Mt.TimeScale) bool {
	from := v.Engine.Transition().CurrentScale
	ok := v.Engine.RequestScale(target, v.Clock.Now())
	result := "rejected"
	if ok {
		result = "accepted"
	}
	v.Stats.RecTransition(from.String(), target.String(), result)
	return ok
}

////////// DRAWING

// ringBottom is the last row of the bordered ring area
func (v *View) ringBottom() int {
	_, height := v.GetScreenSize()
	return height - statusRows - 1
}

// ringBox fits the unit circle into the screen, cells being twice as tall as wide.
// The margin leaves room for ripples drawn outside the ring.
func (v *View) ringBox() (cx, cy int, rx, ry float64) {
	width, _ := v.GetScreenSize()
	bottom := v.ringBottom()
	cx = width / 2
	cy = bottom / 2
	ry = float64(bottom-6) / 2
	rx = ry * 2
	if maxX := float64(width-6) / 2; rx > maxX {
		rx = maxX
		ry = rx / 2
	}
	return cx, cy, rx, ry
}

// CellFor maps layout pixels onto a screen cell
func (v *View) CellFor(geo Me.Geometry, px, py float64) (int, int) {
	cx, cy, rx, ry := v.ringBox()
	dx := (px - geo.CenterX) / geo.Radius
	dy := (py - geo.CenterY) / geo.Radius
	return cx + int(math.Round(dx*rx)), cy + int(math.Round(dy*ry))
}

func (v *View) setCell(x, y int, r rune, style tcell.Style) {
	width, _ := v.GetScreenSize()
	if x <= 0 || y <= 0 || x >= width-1 || y >= v.ringBottom() {
		return
	}
	v.Screen.SetContent(x, y, r, nil, style)
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)
	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)
	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)
	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}
}

// SegmentRune fades with segment opacity; nothing is drawn when fully faded
func SegmentRune(opacity float64) (rune, bool) {
	switch {
	case opacity > 0.66:
		return '●', true
	case opacity > 0.33:
		return '•', true
	case opacity > 0.02:
		return '·', true
	}
	return 0, false
}

// GlyphRune picks the symbol and color for a glyph category
func GlyphRune(category string) (rune, tcell.Color) {
	switch category {
	case Mt.CategoryMood:
		return '♥', tcell.ColorHotPink
	case Mt.CategorySleep:
		return '☾', tcell.ColorMediumPurple
	case Mt.CategoryWeather:
		return '☀', tcell.ColorGold
	case Mt.CategoryPlan:
		return '◆', tcell.ColorDodgerBlue
	}
	return '◇', tcell.ColorSilver
}

// RippleRune shrinks as the ripple ages; life is the remaining fraction
func RippleRune(life float64) rune {
	switch {
	case life > 0.66:
		return '◎'
	case life > 0.33:
		return '○'
	}
	return '∘'
}

func (v *View) drawLayout(geo Me.Geometry, segments []Mt.GeometrySegment) {
	for _, seg := range segments {
		r, ok := SegmentRune(seg.Opacity)
		if !ok {
			continue
		}
		x, y := v.CellFor(geo, seg.X, seg.Y)
		color := tcell.NewRGBColor(90, int32(110+40*math.Min(seg.Scale, 2)), 160)
		v.setCell(x, y, r, tcell.StyleDefault.Foreground(color))
	}
}

func (v *View) drawGlyphs(geo Me.Geometry, glyphs []Mt.Glyph, hit map[string]bool) {
	for _, g := range glyphs {
		px, py := g.X, g.Y
		if !g.Positioned {
			px, py = Me.PolarToXY(geo.CenterX, geo.CenterY, geo.Radius*glyphRadius, g.Angle)
		}
		r, color := GlyphRune(g.Category)
		style := tcell.StyleDefault.Foreground(color)
		if g.Intensity < 0.4 {
			style = style.Dim(true)
		}
		if hit[g.ID] {
			style = style.Reverse(true)
		}
		x, y := v.CellFor(geo, px, py)
		v.setCell(x, y, r, style)
	}
}

// slotAngle is where a ripple's slot sits in this frame
func slotAngle(cfg Me.Config, nowAngle float64, slot int) float64 {
	spacing := 360.0 / float64(cfg.SlotCount)
	if cfg.DetectionMode == Mt.PointProximity {
		return Me.TopOffset + (float64(slot)+0.5)*spacing
	}
	return nowAngle + float64(slot)*spacing
}

// RippleLife is the remaining share of a ripple's lifetime at now, 0 to 1
func RippleLife(r Mt.Ripple, now time.Time) float64 {
	if r.TTL <= 0 {
		return 0
	}
	left := float64(r.ExpiresAt().Sub(now)) / float64(r.TTL)
	return math.Max(0, math.Min(1, left))
}

func (v *View) drawRipples(cfg Me.Config, geo Me.Geometry, frame Mt.Frame) {
	for _, rp := range frame.Ripples {
		life := RippleLife(rp, frame.Timestamp)
		// rings drift outward as they age
		radius := geo.Radius * (1.12 + 0.12*(1-life))
		px, py := Me.PolarToXY(geo.CenterX, geo.CenterY, radius, slotAngle(cfg, frame.NowAngle, rp.Slot))
		_, color := GlyphRune(rp.Category)
		style := tcell.StyleDefault.Foreground(color)
		if rp.Secondary {
			style = style.Dim(true)
		}
		x, y := v.CellFor(geo, px, py)
		v.setCell(x, y, RippleRune(life), style)
	}
}

func (v *View) drawNowIndicator(geo Me.Geometry, nowAngle float64) {
	_, _, rx, _ := v.ringBox()
	steps := int(math.Max(4, rx))
	style := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for i := 1; i < steps; i++ {
		px, py := Me.PolarToXY(geo.CenterX, geo.CenterY, geo.Radius*float64(i)/float64(steps), nowAngle)
		x, y := v.CellFor(geo, px, py)
		v.setCell(x, y, '·', style)
	}
	px, py := Me.PolarToXY(geo.CenterX, geo.CenterY, geo.Radius, nowAngle)
	x, y := v.CellFor(geo, px, py)
	v.setCell(x, y, '◉', style.Bold(true))
}

// StatusLine summarizes a frame for the bottom of the screen
func (v *View) StatusLine(frame Mt.Frame) string {
	ts := frame.Transition
	scale := ts.CurrentScale.String()
	if ts.IsTransitioning() {
		scale = fmt.Sprintf("%s→%s %3.0f%%", ts.CurrentScale, ts.TargetScale, ts.Progress*100)
	}
	return fmt.Sprintf(" %s | %s | tick %s | collisions %s | ripples %d | up %s ",
		frame.Timestamp.Format("Mon 02 Jan 15:04:05"),
		scale,
		humanize.Comma(int64(frame.Tick)),
		humanize.Comma(int64(v.Collisions())),
		len(frame.Ripples),
		humanize.RelTime(v.started, v.Clock.Now(), "", ""),
	)
}

// DrawFrame paints one frame: ring, glyphs, ripples, now indicator, status
func (v *View) DrawFrame(frame Mt.Frame) {
	width, height := v.GetScreenSize()
	cfg := v.Engine.Config()
	geo := cfg.Geometry()

	hit := make(map[string]bool, len(frame.Events))
	for _, ev := range frame.Events {
		hit[ev.GlyphID] = true
	}

	v.DrawViewBorder(width-1, v.ringBottom())
	v.drawLayout(geo, frame.Layout)
	v.drawNowIndicator(geo, frame.NowAngle)
	v.drawGlyphs(geo, v.Engine.Glyphs(), hit)
	v.drawRipples(cfg, geo, frame)

	if frame.Transition.IsTransitioning() {
		// progress runs along the bottom border
		bottom := v.ringBottom()
		bar := int(frame.Transition.Progress * float64(width-2))
		WriteBar(v.Screen, 1, bottom, 1+bar, bottom+1,
			tcell.StyleDefault.Background(tcell.ColorDarkSlateBlue))
	}
	v.DrawText(1, height-2, width, height-2, v.StatusLine(frame))
	v.DrawText(1, height-1, width, height+10, "/d w m y/ scale | /+ -/ zoom | /c/ cancel | /ESC/ to quit")
	v.DrawText(width-9, height-1, width, height+10, "TEMPORA")
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	return v.Screen.Size()
}

// ResizeScreen redraws the last frame after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen(v.Engine.Snapshot())
}

func (v *View) UpdateScreen(frame Mt.Frame) {
	v.drawMU.Lock()
	defer v.drawMU.Unlock()
	v.Screen.Clear()
	v.DrawFrame(frame)
	v.Screen.Show()
}

////////// INPUT

// HandleKey applies one key press and reports whether to quit
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return true
	}

	switch ev.Rune() {
	case 'd', 'w', 'm', 'y':
		scale, _ := Mt.ParseTimeScale(string(ev.Rune()))
		v.RequestScale(scale)
	case '+', '=':
		v.RequestScale(v.Engine.Transition().CurrentScale.ZoomIn())
	case '-', '_':
		v.RequestScale(v.Engine.Transition().CurrentScale.ZoomOut())
	case 'c':
		v.Engine.CancelTransition()
	}
	return false
}

// handleKeyBoardEvent blocks until the user quits
func (v *View) handleKeyBoardEvent() {
	for {
		switch ev := v.Screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventInterrupt:
			return
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			if v.HandleKey(ev) {
				return
			}
		}
	}
}

////////// LIFECYCLE

// recoverTick keeps the loop alive through a panicking tick
func recoverTick() {
	if r := recover(); r != nil {
		slog.Error("Panic in tick loop", slog.Any("panic", r))
		slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
	}
}

func (v *View) serve(addr string) {
	v.server = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(v.SetupMux(), "tempora"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("Starting Tempora web server...", slog.String("Port", addr))
	if err := v.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start web server", slog.Any("Error", err))
	}
}

// Shutdown stops ticking, closes outputs and the server, then the engine
func (v *View) Shutdown(ctx context.Context) error {
	if v.Supervisor != nil {
		v.Supervisor.Stop()
	}

	var errs []error
	if v.server != nil {
		if err := v.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	v.MU.Lock()
	outputs := v.Outputs
	v.Outputs = nil
	v.MU.Unlock()
	for _, out := range outputs {
		if err := out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", out.Type(), err))
		}
	}

	v.Engine.Dispose()
	return errors.Join(errs...)
}

// StartTimelineView runs the terminal UI until ESC or ctx is done,
// with the web server alongside
func StartTimelineView(ctx context.Context, v *View, addr string, interval time.Duration) error {
	if v.Screen == nil {
		screen, err := GetTTY()
		if err != nil {
			slog.Error("Could not start TimelineView", slog.Any("Error", err))
			return err
		}
		v.Screen = screen
	}

	go v.serve(addr)

	v.NewTickSupervisor(interval).Start()

	go func(screen tcell.Screen) {
		<-ctx.Done()
		screen.PostEvent(tcell.NewEventInterrupt(nil))
	}(v.Screen)
	v.handleKeyBoardEvent()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := v.Shutdown(shutdownCtx)
	v.Screen.Fini()
	return err
}

// StartWebNoTUI ticks headless and serves until ctx is done
func StartWebNoTUI(ctx context.Context, v *View, addr string, interval time.Duration) error {
	v.Screen = nil
	go v.serve(addr)
	v.NewTickSupervisor(interval).Start()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return v.Shutdown(shutdownCtx)
}
