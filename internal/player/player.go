// Package player implements the logical media player: a Stopped/Playing/Paused
// state machine whose position advances on a wall clock while playing. The
// actual rendering happens in the client; this tracks what is being played,
// where the playhead is, and at what volume.
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmorel/breakwater/internal/media"
)

// ErrNoStream is returned when a track has no playable URL.
var ErrNoStream = errors.New("track has no stream URL")

const defaultVolume = 80

// Player is the clock-driven implementation of Interface.
type Player struct {
	mu    sync.Mutex
	clock clockwork.Clock

	state State
	track *media.Track

	// elapsed holds position accumulated before resumedAt; while Playing the
	// live position is elapsed + clock.Since(resumedAt).
	elapsed   time.Duration
	resumedAt time.Time

	volume int
}

// New creates a stopped player. A nil clock falls back to the real clock.
func New(clock clockwork.Clock) *Player {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Player{
		clock:  clock,
		state:  Stopped,
		volume: defaultVolume,
	}
}

// Load starts playback of the given track from position zero.
func (p *Player) Load(t media.Track) error {
	if t.StreamURL == "" {
		return ErrNoStream
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	track := t
	p.track = &track
	p.elapsed = 0
	p.resumedAt = p.clock.Now()
	p.state = Playing
	return nil
}

// Stop halts playback and clears the current track.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Stopped
	p.track = nil
	p.elapsed = 0
}

// Pause freezes the playhead. No-op unless Playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.CanPause() {
		return
	}
	p.elapsed = p.positionLocked()
	p.state = Paused
}

// Resume continues from the paused position. No-op unless Paused.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.CanResume() {
		return
	}
	p.resumedAt = p.clock.Now()
	p.state = Playing
}

// Toggle cycles Playing ↔ Paused. No-op if Stopped.
func (p *Player) Toggle() {
	switch p.State() {
	case Playing:
		p.Pause()
	case Paused:
		p.Resume()
	case Stopped:
		// Nothing to toggle when stopped.
	}
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns a copy of the loaded track, or nil if stopped.
func (p *Player) Current() *media.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == nil {
		return nil
	}
	t := *p.track
	return &t
}

// Position returns the playhead, clamped to the track duration.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	if p.track == nil {
		return 0
	}
	pos := p.elapsed
	if p.state == Playing {
		pos += p.clock.Since(p.resumedAt)
	}
	if d := p.track.Duration; d > 0 && pos > d {
		pos = d
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

// Duration returns the loaded track's duration (0 if none).
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == nil {
		return 0
	}
	return p.track.Duration
}

// Seek moves the playhead by delta, clamped to [0, duration].
func (p *Player) Seek(delta time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekToLocked(p.positionLocked() + delta)
}

// SeekTo moves the playhead to pos, clamped to [0, duration].
func (p *Player) SeekTo(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekToLocked(pos)
}

func (p *Player) seekToLocked(pos time.Duration) {
	if p.track == nil {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if d := p.track.Duration; d > 0 && pos > d {
		pos = d
	}
	p.elapsed = pos
	p.resumedAt = p.clock.Now()
}

// Finished reports whether the playhead has reached the end of the track.
func (p *Player) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == nil || p.track.Duration <= 0 {
		return false
	}
	return p.positionLocked() >= p.track.Duration
}

// Volume returns the current volume (0-100).
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume, clamped to 0-100.
func (p *Player) SetVolume(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	p.volume = v
}
