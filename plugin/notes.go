package plugin

import (
	"time"

	Mt "github.com/maroda/tempora/types"
)

const DefaultRoot uint8 = 60 // middle C

// each category plays in its own register
var categoryOffset = map[string]int{
	Mt.CategoryMood:    0,
	Mt.CategorySleep:   -12,
	Mt.CategoryWeather: 12,
	Mt.CategoryPlan:    7,
}

// major pentatonic, so neighbouring slots never clash
var pentatonic = []int{0, 2, 4, 7, 9}

// NoteFor picks a pitch from the glyph category and the ring slot
func NoteFor(root uint8, ev *Mt.CollisionEvent) uint8 {
	slot := ev.Slot
	if slot < 0 {
		slot = 0
	}
	n := int(root) + categoryOffset[ev.Category] +
		pentatonic[slot%len(pentatonic)] + 12*((slot/len(pentatonic))%2)
	switch {
	case n < 0:
		return 0
	case n > 127:
		return 127
	}
	return uint8(n)
}

// VelocityFor maps intensity onto 1..127
func VelocityFor(intensity float64) uint8 {
	switch {
	case intensity <= 0:
		return 1
	case intensity >= 1:
		return 127
	}
	return uint8(1 + intensity*126)
}

// NoteLength grows with intensity, from a short tap to just under a second
func NoteLength(intensity float64) time.Duration {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return 150*time.Millisecond + time.Duration(intensity*float64(750*time.Millisecond))
}
