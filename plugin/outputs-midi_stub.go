//go:build nomidi

package plugin

import (
	"errors"

	Mt "github.com/maroda/tempora/types"
)

var errNoMIDI = errors.New("MIDI support not compiled in this build")

type MIDIOutput struct{}

func NewMIDIOutput(port int, root uint8) (*MIDIOutput, error) {
	return nil, errNoMIDI
}

func (m *MIDIOutput) WriteCollision(ev *Mt.CollisionEvent) error { return errNoMIDI }
func (m *MIDIOutput) Flush() error                               { return nil }
func (m *MIDIOutput) Close() error                               { return nil }
func (m *MIDIOutput) Type() string                               { return "midi-disabled" }
