// Package playback coordinates the player and the playing queue behind a
// single service interface and fans playback events out to subscribers.
package playback

import (
	"time"

	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/player"
)

// Service defines the playback service contract.
type Service interface {
	// Playback control
	Play() error
	PlayTrack(track media.Track) error // Queue a track and start playing it
	Pause() error
	Stop() error
	Toggle() error
	Next() error
	Previous() error
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error

	// Queue navigation (starts playback)
	JumpTo(index int) error

	// Queue manipulation
	AddTracks(tracks ...media.Track)
	ReplaceTracks(tracks ...media.Track) error
	ReplaceTrackAt(index int, track media.Track) error // In-place swap, e.g. a language variant
	RemoveTrack(index int) bool
	ClearQueue()

	// State queries
	State() State
	IsPlaying() bool
	IsPaused() bool
	IsStopped() bool
	Position() time.Duration
	Duration() time.Duration
	CurrentTrack() *media.Track
	Player() player.Interface // Direct player access

	// Volume control
	Volume() int
	SetVolume(volume int)

	// Queue queries
	QueueTracks() []media.Track
	QueueCurrentIndex() int
	QueueLen() int
	QueueIsEmpty() bool
	QueueHasNext() bool
	QueueHasPrevious() bool

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Lifecycle
	Close() error
}
