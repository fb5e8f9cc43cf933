package plugin

/*

	Outputs sit beside the engine.
	Each one receives the collision stream after the engine lock is released.

*/

import (
	"time"

	Mt "github.com/maroda/tempora/types"
)

// OutputAdapter is a place for collision events to go,
// one at a time or buffered if the output supports it.
type OutputAdapter interface {
	WriteCollision(ev *Mt.CollisionEvent) error // Write a single collision
	Flush() error                               // Flush any buffered data
	Close() error                               // Close the adapter and release resources
	Type() string                               // ID for output
}

// CollisionLog is an output that can also be read back
type CollisionLog interface {
	OutputAdapter
	WriteBatch(events []*Mt.CollisionEvent) error
	QueryRange(start, end time.Time) ([]*Mt.CollisionEvent, error)
}
