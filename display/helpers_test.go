package tempora_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	Md "github.com/maroda/tempora/display"
	Me "github.com/maroda/tempora/engine"
	Mt "github.com/maroda/tempora/types"
)

// noon puts the day-scale now indicator at 90°
var noon = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Me.Config {
	cfg := Me.DefaultConfig()
	cfg.Timezone = "UTC"
	return cfg
}

// newTestView builds a View on a mock clock at noon with one mood glyph
// sitting two degrees past the now indicator
func newTestView(t *testing.T, screen tcell.Screen) (*Md.View, *Me.MockClock) {
	t.Helper()
	e, err := Me.NewEngine(testConfig())
	if err != nil {
		t.Fatalf("could not create engine: %v", err)
	}
	t.Cleanup(e.Dispose)

	e.SetGlyphs([]Mt.Glyph{
		{ID: "mood-1", Angle: 92, Category: Mt.CategoryMood, Intensity: 1},
	})

	clock := Me.NewMockClock(noon)
	return Md.NewView(e, clock, screen), clock
}

func writeConfigFile(t *testing.T, data string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "tempora.json")
	if err := os.WriteFile(name, []byte(data), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	return name
}

func mkTestScreen(t *testing.T, charset string) tcell.SimulationScreen {
	s := tcell.NewSimulationScreen(charset)
	if s == nil {
		t.Fatalf("Failed to get SimulationScreen")
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	s.SetSize(80, 25)
	return s
}

// screenRow reads back one row of the simulated screen
func screenRow(s tcell.SimulationScreen, y int) string {
	cells, width, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < width; x++ {
		c := cells[y*width+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func screenHas(s tcell.SimulationScreen, r rune) bool {
	_, _, height := s.GetContents()
	for y := 0; y < height; y++ {
		if strings.ContainsRune(screenRow(s, y), r) {
			return true
		}
	}
	return false
}

// recordOutput is an in-memory OutputAdapter
type recordOutput struct {
	mu      sync.Mutex
	events  []Mt.CollisionEvent
	flushed int
	closed  bool
	fail    error
}

func (r *recordOutput) WriteCollision(ev *Mt.CollisionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, *ev)
	return nil
}

func (r *recordOutput) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed++
	return nil
}

func (r *recordOutput) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordOutput) Type() string { return "record" }

func (r *recordOutput) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

/// Helpers

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertFloat(t testing.TB, got, want float64) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %v, want %v", got, want)
	}
}

func assertBool(t testing.TB, got, want bool) {
	t.Helper()
	if got != want {
		t.Errorf("got %t, want %t", got, want)
	}
}

func assertStringContains(t testing.TB, full, want string) {
	t.Helper()
	if !strings.Contains(full, want) {
		t.Errorf("Did not find %q, expected string contains %q", want, full)
	}
}
