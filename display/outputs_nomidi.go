//go:build nomidi

package tempora

const MIDIAvailable = false
