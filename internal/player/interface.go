// internal/player/interface.go
package player

import (
	"time"

	"github.com/dmorel/breakwater/internal/media"
)

// Interface defines the player contract for dependency injection and testing.
type Interface interface {
	Load(t media.Track) error
	Stop()
	Pause()
	Resume()
	Toggle()
	State() State
	Current() *media.Track
	Position() time.Duration
	Duration() time.Duration
	Seek(delta time.Duration)
	SeekTo(pos time.Duration)
	Finished() bool
	Volume() int
	SetVolume(v int)
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
