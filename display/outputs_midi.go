//go:build !nomidi

package tempora

// MIDIAvailable reports whether this build can drive a MIDI port
const MIDIAvailable = true
