package tempora

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	Me "github.com/maroda/tempora/engine"
	Mt "github.com/maroda/tempora/types"
)

const wsInterval = 100 * time.Millisecond

// FrameD3 is a Frame flattened for the browser: angles are 0-360
// clockwise from the top and ripples carry their remaining life.
type FrameD3 struct {
	Timestamp  time.Time   `json:"timestamp"`
	Tick       uint64      `json:"tick"`
	Scale      string      `json:"scale"`
	Target     string      `json:"target"`
	Progress   float64     `json:"progress"`
	NowAngle   float64     `json:"nowAngle"`
	Segments   []SegmentD3 `json:"segments"`
	Ripples    []RippleD3  `json:"ripples"`
	Collisions []string    `json:"collisions"`
}

type SegmentD3 struct {
	Angle   float64 `json:"angle"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
}

type RippleD3 struct {
	ID        string  `json:"id"`
	Slot      int     `json:"slot"`
	Angle     float64 `json:"angle"`
	Category  string  `json:"category"`
	Intensity float64 `json:"intensity"`
	Secondary bool    `json:"secondary"`
	Life      float64 `json:"life"` // 1 when new, 0 at expiry
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// d3Angle rotates engine degrees so 0 is the top of the ring
func d3Angle(deg float64) float64 {
	return Me.FloatPrecise(Me.NormalizeDegrees(deg-Me.TopOffset), 3)
}

// ToFrameD3 converts a Frame for the websocket
func ToFrameD3(cfg Me.Config, frame Mt.Frame) FrameD3 {
	ts := frame.Transition
	out := FrameD3{
		Timestamp:  frame.Timestamp,
		Tick:       frame.Tick,
		Scale:      ts.CurrentScale.String(),
		Target:     ts.TargetScale.String(),
		Progress:   Me.FloatPrecise(ts.Progress, 4),
		NowAngle:   d3Angle(frame.NowAngle),
		Segments:   make([]SegmentD3, 0, len(frame.Layout)),
		Ripples:    make([]RippleD3, 0, len(frame.Ripples)),
		Collisions: make([]string, 0, len(frame.Events)),
	}

	for _, seg := range frame.Layout {
		out.Segments = append(out.Segments, SegmentD3{
			Angle:   d3Angle(seg.Angle),
			X:       Me.FloatPrecise(seg.X, 2),
			Y:       Me.FloatPrecise(seg.Y, 2),
			Scale:   Me.FloatPrecise(seg.Scale, 3),
			Opacity: Me.FloatPrecise(seg.Opacity, 3),
		})
	}
	for _, rp := range frame.Ripples {
		out.Ripples = append(out.Ripples, RippleD3{
			ID:        rp.ID,
			Slot:      rp.Slot,
			Angle:     d3Angle(slotAngle(cfg, frame.NowAngle, rp.Slot)),
			Category:  rp.Category,
			Intensity: rp.Intensity,
			Secondary: rp.Secondary,
			Life:      Me.FloatPrecise(RippleLife(rp, frame.Timestamp), 3),
		})
	}
	for _, ev := range frame.Events {
		out.Collisions = append(out.Collisions, ev.GlyphID)
	}
	return out
}

// WebsocketHandler streams the latest frame until the client goes away
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// reads only serve to notice the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cfg := v.Engine.Config()
	ticker := time.NewTicker(wsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(ToFrameD3(cfg, v.Engine.Snapshot())); err != nil {
				slog.Debug("Websocket closed", slog.Any("Error", err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
