package scrobble

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmorel/breakwater/internal/state"
	"github.com/dmorel/breakwater/internal/stats"
)

const (
	retryInterval = 5 * time.Minute
	maxAttempts   = 10
	pendingMaxAge = 30 * 24 * time.Hour
)

// submitter is the Last.fm surface the scrobbler needs.
type submitter interface {
	Scrobble(track Track) error
	UpdateNowPlaying(track Track) error
	IsAuthenticated() bool
}

var _ submitter = (*Client)(nil)

// Scrobbler forwards completed play records to Last.fm. Failures land in
// the pending queue; Run retries them periodically.
type Scrobbler struct {
	client submitter
	store  *state.Manager
	clock  clockwork.Clock
}

// New creates a scrobbler. A nil clock uses the real one.
func New(client submitter, store *state.Manager, clock clockwork.Clock) *Scrobbler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scrobbler{client: client, store: store, clock: clock}
}

// NowPlaying announces the current track. Best effort, errors are dropped.
func (s *Scrobbler) NowPlaying(artist, title string, duration time.Duration) {
	if !s.client.IsAuthenticated() {
		return
	}
	_ = s.client.UpdateNowPlaying(Track{Artist: artist, Title: title, Duration: duration})
}

// HandleRecord is wired as the stats tracker's record hook. Only completed
// plays scrobble; a failed submission is queued for retry.
func (s *Scrobbler) HandleRecord(rec stats.PlayRecord) {
	if !rec.Completed || !s.client.IsAuthenticated() {
		return
	}

	track := Track{
		Artist:    rec.ArtistName,
		Title:     rec.Title,
		Duration:  rec.Duration,
		Timestamp: rec.StartedAt,
	}
	if err := s.client.Scrobble(track); err != nil {
		log.Printf("[scrobble] submit failed for %s, queueing: %v", rec.MediaID, err)
		if qErr := s.store.AddPendingScrobble(state.PendingScrobble{
			Artist:       rec.ArtistName,
			Title:        rec.Title,
			MediaID:      rec.MediaID,
			DurationSecs: rec.Seconds,
			Timestamp:    rec.StartedAt,
		}); qErr != nil {
			log.Printf("[scrobble] queue failed: %v", qErr)
		}
	}
}

// Run retries pending scrobbles every few minutes until the context is
// cancelled.
func (s *Scrobbler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.retryPending()
		}
	}
}

// retryPending submits queued scrobbles, dropping entries past the attempt
// limit or the age limit.
func (s *Scrobbler) retryPending() {
	if !s.client.IsAuthenticated() {
		return
	}

	if err := s.store.DeleteOldPendingScrobbles(pendingMaxAge); err != nil {
		log.Printf("[scrobble] prune pending: %v", err)
	}

	pending, err := s.store.GetPendingScrobbles()
	if err != nil {
		log.Printf("[scrobble] load pending: %v", err)
		return
	}

	for i := range pending {
		p := &pending[i]
		if p.Attempts >= maxAttempts {
			continue
		}

		track := Track{
			Artist:    p.Artist,
			Title:     p.Title,
			Duration:  time.Duration(p.DurationSecs) * time.Second,
			Timestamp: p.Timestamp,
		}
		if err := s.client.Scrobble(track); err != nil {
			if uErr := s.store.UpdatePendingScrobbleAttempt(p.ID, err.Error()); uErr != nil {
				log.Printf("[scrobble] update attempt: %v", uErr)
			}
			continue
		}
		if dErr := s.store.DeletePendingScrobble(p.ID); dErr != nil {
			log.Printf("[scrobble] delete pending: %v", dErr)
		}
	}
}
