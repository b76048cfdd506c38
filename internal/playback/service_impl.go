// internal/playback/service_impl.go
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/player"
	"github.com/dmorel/breakwater/internal/playlist"
)

// ErrNothingToPlay is returned when Play is called with an empty queue.
var ErrNothingToPlay = errors.New("playback: nothing to play")

// previousRestartThreshold is how far into a track Previous restarts it
// instead of stepping back to the prior queue entry.
const previousRestartThreshold = 3 * time.Second

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.RWMutex

	player player.Interface
	queue  *playlist.PlayingQueue

	subs   []*Subscription
	subsMu sync.RWMutex

	closed bool
}

// New creates a new playback service.
func New(p player.Interface, q *playlist.PlayingQueue) Service {
	return &serviceImpl{
		player: p,
		queue:  q,
	}
}

// Play starts or resumes playback.
//
// If paused, it resumes. If stopped with a current queue position, it
// reloads that track. If stopped with no position but a non-empty queue,
// it starts from the beginning.
func (s *serviceImpl) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.player.State() {
	case player.Playing:
		return nil
	case player.Paused:
		prev := s.stateLocked()
		s.player.Resume()
		s.emitState(prev, s.stateLocked())
		return nil
	}

	track := s.queue.Current()
	if track == nil {
		if s.queue.IsEmpty() {
			return ErrNothingToPlay
		}
		track = s.queue.JumpTo(0)
	}
	return s.startTrackLocked(*track, nil, -1)
}

// PlayTrack appends the track to the queue and starts playing it.
func (s *serviceImpl) PlayTrack(track media.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	if t := s.queue.AddAndPlay(track); t == nil {
		return ErrNothingToPlay
	}
	s.emitQueue()
	return s.startTrackLocked(track, prevTrack, prevIndex)
}

// startTrackLocked loads and starts the given track. Caller holds mu.
func (s *serviceImpl) startTrackLocked(track media.Track, prevTrack *media.Track, prevIndex int) error {
	prevState := s.stateLocked()
	if err := s.player.Load(track); err != nil {
		s.emitError("play", track.ID, err)
		return err
	}
	s.emitState(prevState, s.stateLocked())
	s.emitTrack(TrackChange{
		Previous:      prevTrack,
		Current:       s.queue.Current(),
		PreviousIndex: prevIndex,
		Index:         s.queue.CurrentIndex(),
	})
	return nil
}

// Pause pauses playback if playing.
func (s *serviceImpl) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.player.State().CanPause() {
		return nil
	}
	prev := s.stateLocked()
	s.player.Pause()
	s.emitState(prev, s.stateLocked())
	return nil
}

// Stop stops playback. The queue position is preserved.
func (s *serviceImpl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player.State() == player.Stopped {
		return nil
	}
	prev := s.stateLocked()
	s.player.Stop()
	s.emitState(prev, s.stateLocked())
	return nil
}

// Toggle switches between playing and paused.
func (s *serviceImpl) Toggle() error {
	s.mu.RLock()
	state := s.player.State()
	s.mu.RUnlock()

	switch state {
	case player.Playing:
		return s.Pause()
	default:
		return s.Play()
	}
}

// Next advances to the next track. At the end of the queue it stops.
func (s *serviceImpl) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	next := s.queue.Next()
	if next == nil {
		prev := s.stateLocked()
		s.player.Stop()
		s.emitState(prev, s.stateLocked())
		return nil
	}
	return s.startTrackLocked(*next, prevTrack, prevIndex)
}

// Previous restarts the current track when more than a few seconds in,
// otherwise it steps back to the previous queue entry.
func (s *serviceImpl) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player.Position() > previousRestartThreshold {
		s.player.SeekTo(0)
		s.emitPosition(0)
		return nil
	}

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	track := s.queue.Previous()
	if track == nil {
		// Already at the first track: restart it.
		s.player.SeekTo(0)
		s.emitPosition(0)
		return nil
	}
	return s.startTrackLocked(*track, prevTrack, prevIndex)
}

// Seek moves the playback position by delta.
func (s *serviceImpl) Seek(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.player.State().IsActive() {
		return nil
	}
	s.player.Seek(delta)
	s.emitPosition(s.player.Position())
	return nil
}

// SeekTo moves the playback position to an absolute offset.
func (s *serviceImpl) SeekTo(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.player.State().IsActive() {
		return nil
	}
	s.player.SeekTo(position)
	s.emitPosition(s.player.Position())
	return nil
}

// JumpTo moves the queue to index and starts playing that track.
func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	track := s.queue.JumpTo(index)
	if track == nil {
		return ErrNothingToPlay
	}
	return s.startTrackLocked(*track, prevTrack, prevIndex)
}

// AddTracks appends tracks to the queue without changing playback.
func (s *serviceImpl) AddTracks(tracks ...media.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Add(tracks...)
	s.emitQueue()
}

// ReplaceTracks replaces the queue contents and starts the first track.
func (s *serviceImpl) ReplaceTracks(tracks ...media.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	first := s.queue.Replace(tracks...)
	s.emitQueue()
	if first == nil {
		prev := s.stateLocked()
		s.player.Stop()
		s.emitState(prev, s.stateLocked())
		return nil
	}
	return s.startTrackLocked(*first, prevTrack, prevIndex)
}

// ReplaceTrackAt swaps the queue entry at index in place. Replacing the
// current entry while playback is active reloads the player with the new
// track; the queue position never moves.
func (s *serviceImpl) ReplaceTrackAt(index int, track media.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()
	if !s.queue.ReplaceAt(index, track) {
		return ErrNothingToPlay
	}
	s.emitQueue()
	if index == prevIndex && s.player.State().IsActive() {
		return s.startTrackLocked(track, prevTrack, prevIndex)
	}
	return nil
}

// RemoveTrack removes the track at index from the queue.
func (s *serviceImpl) RemoveTrack(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removingCurrent := index == s.queue.CurrentIndex()
	if !s.queue.RemoveAt(index) {
		return false
	}
	s.emitQueue()
	if removingCurrent && s.player.State().IsActive() {
		prev := s.stateLocked()
		s.player.Stop()
		s.emitState(prev, s.stateLocked())
	}
	return true
}

// ClearQueue stops playback and empties the queue.
func (s *serviceImpl) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stateLocked()
	s.player.Stop()
	s.queue.Clear()
	s.emitQueue()
	s.emitState(prev, s.stateLocked())
}

// State returns the current playback state.
func (s *serviceImpl) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *serviceImpl) stateLocked() State {
	switch s.player.State() {
	case player.Playing:
		return StatePlaying
	case player.Paused:
		return StatePaused
	default:
		return StateStopped
	}
}

// IsPlaying returns true if playback is active and not paused.
func (s *serviceImpl) IsPlaying() bool { return s.State() == StatePlaying }

// IsPaused returns true if playback is paused.
func (s *serviceImpl) IsPaused() bool { return s.State() == StatePaused }

// IsStopped returns true if playback is stopped.
func (s *serviceImpl) IsStopped() bool { return s.State() == StateStopped }

// Position returns the current playback position.
func (s *serviceImpl) Position() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Position()
}

// Duration returns the current track duration.
func (s *serviceImpl) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Duration()
}

// CurrentTrack returns a copy of the current track, or nil if none.
func (s *serviceImpl) CurrentTrack() *media.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.queue.Current()
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Player returns the underlying player.
func (s *serviceImpl) Player() player.Interface {
	return s.player
}

// Volume returns the current volume level.
func (s *serviceImpl) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Volume()
}

// SetVolume sets the volume level.
func (s *serviceImpl) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.SetVolume(volume)
	s.emitVolume(s.player.Volume())
}

// QueueTracks returns a copy of all tracks in the queue.
func (s *serviceImpl) QueueTracks() []media.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Tracks()
}

// QueueCurrentIndex returns the current queue index (-1 if none).
func (s *serviceImpl) QueueCurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.CurrentIndex()
}

// QueueLen returns the number of tracks in the queue.
func (s *serviceImpl) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Len()
}

// QueueIsEmpty returns true if the queue has no tracks.
func (s *serviceImpl) QueueIsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.IsEmpty()
}

// QueueHasNext returns true if there is a track after the current one.
func (s *serviceImpl) QueueHasNext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.HasNext()
}

// QueueHasPrevious returns true if there is a track before the current one.
func (s *serviceImpl) QueueHasPrevious() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.HasPrevious()
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes a subscription and closes its done channel.
func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// Close shuts down the service and all subscriptions.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.player.Stop()
	s.mu.Unlock()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}

// Event emission helpers. State mutation helpers above hold s.mu while
// calling these; the subscriber channels are buffered and non-blocking
// so this cannot deadlock.

func (s *serviceImpl) emitState(prev, cur State) {
	if prev == cur {
		return
	}
	e := StateChange{Previous: prev, Current: cur}
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendState(e)
	}
}

func (s *serviceImpl) emitTrack(e TrackChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendTrack(e)
	}
}

func (s *serviceImpl) emitPosition(pos time.Duration) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendPosition(pos)
	}
}

func (s *serviceImpl) emitQueue() {
	e := QueueChange{Tracks: s.queue.Tracks(), Index: s.queue.CurrentIndex()}
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendQueue(e)
	}
}

func (s *serviceImpl) emitVolume(volume int) {
	e := VolumeChange{Volume: volume}
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendVolume(e)
	}
}

func (s *serviceImpl) emitError(op, mediaID string, err error) {
	e := ErrorEvent{Operation: op, MediaID: mediaID, Err: err}
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendError(e)
	}
}
