// Package gate wraps the playback service with entitlement checks and play
// session tracking. Start-actions consult the subscription rules first; on
// denial the denial handler fires and player state stays untouched. Approved
// actions delegate, then open a stats session. Pause and stop always pass.
package gate

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmorel/breakwater/internal/entitlement"
	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/playback"
	"github.com/dmorel/breakwater/internal/stats"
)

// DefaultTickInterval is how often listening time accrues while playing.
const DefaultTickInterval = time.Second

// completedSlack is how close to the end a session must stop to count as a
// completed play.
const completedSlack = time.Second

// Gate is the subscription-gated front of the playback service.
type Gate struct {
	svc     playback.Service
	rules   *entitlement.Rules
	tracker *stats.Tracker

	clock        clockwork.Clock
	tickInterval time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock injects a clock for tests.
func WithClock(c clockwork.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

// WithTickInterval overrides the accumulation tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(g *Gate) { g.tickInterval = d }
}

// New creates a gate over the playback service.
func New(svc playback.Service, rules *entitlement.Rules, tracker *stats.Tracker, opts ...Option) *Gate {
	g := &Gate{
		svc:          svc,
		rules:        rules,
		tracker:      tracker,
		clock:        clockwork.NewRealClock(),
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Service exposes the underlying playback service for state queries.
func (g *Gate) Service() playback.Service {
	return g.svc
}

// Rules exposes the entitlement rules.
func (g *Gate) Rules() *entitlement.Rules {
	return g.rules
}

// PlayTrack starts a new gated play session for the track. started is false
// when the quota denied it; the player is left untouched in that case.
// The quota is only consumed once the player accepted the track.
func (g *Gate) PlayTrack(ctx context.Context, track media.Track) (started bool, err error) {
	if !g.rules.CheckPlay() {
		return false, nil
	}
	if err := g.svc.PlayTrack(track); err != nil {
		return false, err
	}
	g.rules.ConsumePlay()
	g.tracker.StartPlay(ctx, track)
	return true, nil
}

// Play resumes paused playback without consuming quota, or starts the
// current queue track as a new gated session.
func (g *Gate) Play(ctx context.Context) (started bool, err error) {
	if g.svc.IsPaused() {
		return true, g.svc.Play()
	}

	if !g.rules.CheckPlay() {
		return false, nil
	}
	if err := g.svc.Play(); err != nil {
		return false, err
	}
	g.rules.ConsumePlay()
	if track := g.svc.CurrentTrack(); track != nil {
		g.tracker.StartPlay(ctx, *track)
	}
	return true, nil
}

// Toggle pauses when playing, otherwise behaves like Play.
func (g *Gate) Toggle(ctx context.Context) (started bool, err error) {
	if g.svc.IsPlaying() {
		return true, g.svc.Pause()
	}
	return g.Play(ctx)
}

// Pause always passes through. The open session stays open; it simply stops
// accruing time.
func (g *Gate) Pause() error {
	return g.svc.Pause()
}

// Stop ends playback and flushes the session.
func (g *Gate) Stop(ctx context.Context) error {
	completed := g.nearEnd()
	if err := g.svc.Stop(); err != nil {
		return err
	}
	g.tracker.RecordPlay(ctx, completed)
	return nil
}

// Next moves to the next queue track as a new gated session. Reaching the
// end of the queue stops playback and flushes.
func (g *Gate) Next(ctx context.Context) (started bool, err error) {
	if !g.svc.QueueHasNext() {
		return false, g.Stop(ctx)
	}
	if !g.rules.CheckPlay() {
		return false, nil
	}
	if err := g.svc.Next(); err != nil {
		return false, err
	}
	g.rules.ConsumePlay()
	if track := g.svc.CurrentTrack(); track != nil {
		g.tracker.StartPlay(ctx, *track)
	}
	return true, nil
}

// Previous either restarts the current track (no quota, same session) or
// starts the prior queue track as a new gated session.
func (g *Gate) Previous(ctx context.Context) (started bool, err error) {
	if !g.svc.QueueHasPrevious() || g.svc.Position() > 3*time.Second {
		// Restart of the same track stays within the open session.
		return true, g.svc.Previous()
	}
	if !g.rules.CheckPlay() {
		return false, nil
	}
	if err := g.svc.Previous(); err != nil {
		return false, err
	}
	g.rules.ConsumePlay()
	if track := g.svc.CurrentTrack(); track != nil {
		g.tracker.StartPlay(ctx, *track)
	}
	return true, nil
}

// Seek passes through to the playback service.
func (g *Gate) Seek(delta time.Duration) error {
	return g.svc.Seek(delta)
}

// SeekTo passes through to the playback service.
func (g *Gate) SeekTo(position time.Duration) error {
	return g.svc.SeekTo(position)
}

// SwitchLanguage checks the tier's language allow-list and, if permitted,
// invokes the caller-supplied switch callback.
func (g *Gate) SwitchLanguage(lang string, fn func(lang string) error) (switched bool, err error) {
	if !g.rules.AttemptLanguage(lang) {
		return false, nil
	}
	if err := fn(lang); err != nil {
		return false, err
	}
	return true, nil
}

// Run drives the accumulation tick and auto-advance until the context is
// cancelled. Each tick adds the interval to the open session while playing;
// a finished track is recorded as completed and the queue advances.
func (g *Gate) Run(ctx context.Context) {
	ticker := g.clock.NewTicker(g.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			g.tick(ctx)
		}
	}
}

func (g *Gate) tick(ctx context.Context) {
	if !g.svc.IsPlaying() {
		return
	}
	g.tracker.AddDuration(g.tickInterval)

	if g.svc.Player().Finished() {
		g.tracker.RecordPlay(ctx, true)
		started, err := g.Next(ctx)
		if err != nil || (!started && g.svc.IsPlaying()) {
			// A denied or failed auto-advance must not leave the player
			// sitting at end-of-track, or the next tick retries forever.
			g.svc.Stop()
		}
	}
}

// nearEnd reports whether the playhead is within the completion slack of
// the track's end.
func (g *Gate) nearEnd() bool {
	dur := g.svc.Duration()
	if dur <= 0 {
		return false
	}
	return g.svc.Position() >= dur-completedSlack
}
