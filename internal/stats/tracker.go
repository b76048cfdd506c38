package stats

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dmorel/breakwater/internal/media"
)

// Defaults for the recording policy. Both are configuration, not invariants.
const (
	DefaultMinRecordDuration = 10 * time.Second
	DefaultCacheTTL          = 30 * time.Second
)

// Tracker accumulates listening time for the active session and keeps a
// TTL cache of the backend aggregate.
type Tracker struct {
	mu    sync.Mutex
	clock clockwork.Clock

	backend   Backend
	minRecord time.Duration
	cacheTTL  time.Duration

	pending *PendingPlay

	cached    *Aggregate
	fetchedAt time.Time

	onRecorded func(PlayRecord)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMinRecordDuration overrides the minimum session length that gets
// recorded.
func WithMinRecordDuration(d time.Duration) Option {
	return func(t *Tracker) { t.minRecord = d }
}

// WithCacheTTL overrides how long a fetched aggregate is served from cache.
func WithCacheTTL(d time.Duration) Option {
	return func(t *Tracker) { t.cacheTTL = d }
}

// WithClock injects a clock for tests.
func WithClock(c clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// NewTracker creates a tracker over the given backend.
func NewTracker(backend Backend, opts ...Option) *Tracker {
	t := &Tracker{
		clock:     clockwork.NewRealClock(),
		backend:   backend,
		minRecord: DefaultMinRecordDuration,
		cacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnRecorded registers a hook called after a session is successfully
// recorded. Used by the scrobble sink.
func (t *Tracker) OnRecorded(fn func(PlayRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecorded = fn
}

// StartPlay opens a session for the track. A still-open previous session is
// flushed as not completed first.
func (t *Tracker) StartPlay(ctx context.Context, track media.Track) {
	t.mu.Lock()
	prev := t.takePendingLocked()
	t.pending = &PendingPlay{
		MediaID:    track.ID,
		ArtistID:   track.ArtistID,
		Title:      track.Title,
		ArtistName: track.ArtistName,
		SessionID:  uuid.NewString(),
		StartedAt:  t.clock.Now(),
	}
	t.mu.Unlock()

	if prev != nil {
		t.flush(ctx, prev, false)
	}
}

// AddDuration adds elapsed listening time to the active session. No-op when
// no session is open.
func (t *Tracker) AddDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Accumulated += d
	}
}

// RecordPlay closes the active session and records it. Sessions shorter than
// the minimum duration are discarded silently; that filters accidental taps.
func (t *Tracker) RecordPlay(ctx context.Context, completed bool) {
	t.mu.Lock()
	pending := t.takePendingLocked()
	t.mu.Unlock()

	if pending == nil {
		return
	}
	t.flush(ctx, pending, completed)
}

// Pending returns a copy of the active session, or nil if none.
func (t *Tracker) Pending() *PendingPlay {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	cp := *t.pending
	return &cp
}

// Stats returns the aggregate counters, served from cache when the last
// fetch is within the TTL. A fetch error leaves prior state unchanged and
// returns the stale aggregate if one exists.
func (t *Tracker) Stats(ctx context.Context) (*Aggregate, error) {
	t.mu.Lock()
	if t.cached != nil && t.clock.Since(t.fetchedAt) < t.cacheTTL {
		cp := *t.cached
		t.mu.Unlock()
		return &cp, nil
	}
	t.mu.Unlock()

	agg, err := t.backend.GetStats(ctx)
	if err != nil {
		log.Printf("[stats] fetch failed: %v", err)
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.cached != nil {
			cp := *t.cached
			return &cp, err
		}
		return nil, err
	}

	t.mu.Lock()
	t.cached = agg
	t.fetchedAt = t.clock.Now()
	cp := *agg
	t.mu.Unlock()
	return &cp, nil
}

// Reset clears the backend counters and invalidates the local cache.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.backend.ResetStats(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	t.cached = nil
	t.fetchedAt = time.Time{}
	t.mu.Unlock()
	return nil
}

// takePendingLocked detaches the active session. Caller holds mu.
func (t *Tracker) takePendingLocked() *PendingPlay {
	p := t.pending
	t.pending = nil
	return p
}

// flush records a detached session, applying the minimum-duration policy.
// Network errors are logged and leave the cached aggregate unchanged.
func (t *Tracker) flush(ctx context.Context, p *PendingPlay, completed bool) {
	if p.Accumulated < t.minRecord {
		return
	}

	rec := PlayRecord{
		MediaID:    p.MediaID,
		ArtistID:   p.ArtistID,
		SessionID:  p.SessionID,
		Duration:   p.Accumulated,
		Seconds:    int(p.Accumulated / time.Second),
		Completed:  completed,
		Title:      p.Title,
		ArtistName: p.ArtistName,
		StartedAt:  p.StartedAt,
	}
	agg, err := t.backend.RecordPlay(ctx, rec)
	if err != nil {
		log.Printf("[stats] record failed for %s: %v", rec.MediaID, err)
		return
	}
	t.mu.Lock()
	if agg != nil {
		t.cached = agg
		t.fetchedAt = t.clock.Now()
	}
	hook := t.onRecorded
	t.mu.Unlock()
	if hook != nil {
		hook(rec)
	}
}
