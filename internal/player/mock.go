// internal/player/mock.go
package player

import (
	"time"

	"github.com/dmorel/breakwater/internal/media"
)

// Mock is a test double for Player.
type Mock struct {
	state     State
	track     *media.Track
	position  time.Duration
	duration  time.Duration
	volume    int
	finished  bool
	loadErr   error
	loadCalls []string
	seekCalls []time.Duration
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{state: Stopped, volume: defaultVolume}
}

func (m *Mock) Load(t media.Track) error {
	m.loadCalls = append(m.loadCalls, t.ID)
	if m.loadErr != nil {
		return m.loadErr
	}
	track := t
	m.track = &track
	m.duration = t.Duration
	m.position = 0
	m.state = Playing
	return nil
}

func (m *Mock) Stop() {
	m.state = Stopped
	m.track = nil
	m.position = 0
}

func (m *Mock) Pause() {
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Resume() {
	if m.state == Paused {
		m.state = Playing
	}
}

func (m *Mock) Toggle() {
	switch m.state {
	case Playing:
		m.Pause()
	case Paused:
		m.Resume()
	case Stopped:
		// Nothing to toggle when stopped
	}
}

func (m *Mock) State() State { return m.state }

func (m *Mock) Current() *media.Track {
	if m.track == nil {
		return nil
	}
	t := *m.track
	return &t
}

func (m *Mock) Position() time.Duration { return m.position }

func (m *Mock) Duration() time.Duration { return m.duration }

func (m *Mock) Seek(d time.Duration) {
	m.seekCalls = append(m.seekCalls, d)
	m.position += d
}

func (m *Mock) SeekTo(pos time.Duration) { m.position = pos }

func (m *Mock) Finished() bool { return m.finished }

func (m *Mock) Volume() int { return m.volume }

func (m *Mock) SetVolume(v int) { m.volume = v }

// Test helpers

func (m *Mock) SetState(s State) { m.state = s }

func (m *Mock) SetLoadError(err error) { m.loadErr = err }

func (m *Mock) LoadCalls() []string { return m.loadCalls }

func (m *Mock) SeekCalls() []time.Duration { return m.seekCalls }

func (m *Mock) SetPosition(d time.Duration) { m.position = d }

func (m *Mock) SetDuration(d time.Duration) { m.duration = d }

func (m *Mock) SetFinished(v bool) { m.finished = v }

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
