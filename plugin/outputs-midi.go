//go:build !nomidi

package plugin

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	Mt "github.com/maroda/tempora/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// MIDIOutput plays one note per collision
type MIDIOutput struct {
	Port    drivers.Out
	Send    func(msg midi.Message) error
	Channel uint8
	Root    uint8
	WG      sync.WaitGroup
}

func NewMIDIOutput(port int, root uint8) (*MIDIOutput, error) {
	out, err := midi.OutPort(port)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error opening MIDI port: %w", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error sending to MIDI port: %w", err)
	}

	if root == 0 {
		root = DefaultRoot
	}

	slog.Info("MIDIOutput opened", slog.String("port", out.String()))
	return &MIDIOutput{
		Port: out,
		Send: send,
		Root: root,
	}, nil
}

func (mo *MIDIOutput) SendNoteOnMIDI(midic, midin, midiv uint8) error {
	return mo.Send(midi.NoteOn(midic, midin, midiv))
}

func (mo *MIDIOutput) SendNoteOffMIDI(midic, midin uint8) error {
	return mo.Send(midi.NoteOff(midic, midin))
}

// WriteCollision starts the note now and releases it in the background
func (mo *MIDIOutput) WriteCollision(ev *Mt.CollisionEvent) error {
	note := NoteFor(mo.Root, ev)
	if err := mo.SendNoteOnMIDI(mo.Channel, note, VelocityFor(ev.Intensity)); err != nil {
		return fmt.Errorf("note on %d: %w", note, err)
	}

	length := NoteLength(ev.Intensity)
	mo.WG.Add(1)
	go func() {
		defer mo.WG.Done()
		time.Sleep(length)
		if err := mo.SendNoteOffMIDI(mo.Channel, note); err != nil {
			slog.Error("NoteOff event failed, attempting Flush", slog.Any("Error", err))
			mo.Flush()
		}
	}()
	return nil
}

func (mo *MIDIOutput) Flush() error {
	return mo.Send(midi.ControlChange(mo.Channel, midi.AllNotesOff, midi.Off))
}

// Close lets sounding notes finish before closing the port
func (mo *MIDIOutput) Close() error {
	mo.WG.Wait()

	if mo.Port != nil {
		mo.Port.Close()
		midi.CloseDriver()
	}
	return nil
}

func (mo *MIDIOutput) Type() string { return "MIDI" }
