package playback

import (
	"time"

	"github.com/dmorel/breakwater/internal/media"
)

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when playback starts on a different track.
//
// Emitted by:
//   - PlayTrack: when a new track is loaded and started
//   - Next/Previous/JumpTo: when navigating with playback control
//
// NOT emitted by:
//   - Pause/Stop/Toggle: state changes do not emit TrackChange
//   - Previous when it restarts the current track
//
// Subscribers react to this event for side effects that follow the track,
// such as the now-playing announcement and the event stream pushed to the UI.
type TrackChange struct {
	Previous      *media.Track
	Current       *media.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Tracks []media.Track
	Index  int
}

// PositionChange is emitted when a seek occurs.
type PositionChange struct {
	Position time.Duration
}

// VolumeChange is emitted when the volume level changes.
type VolumeChange struct {
	Volume int
}

// ErrorEvent is emitted when an error occurs during playback.
type ErrorEvent struct {
	Operation string // e.g. "play", "seek"
	MediaID   string // media id if applicable
	Err       error
}
