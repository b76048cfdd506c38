// Package stats tracks per-track listening time and syncs play records with
// the backend. A single pending session accumulates duration while playback
// runs; on flush it is either recorded or, below the minimum threshold,
// silently discarded.
package stats

import (
	"context"
	"time"
)

// PlayRecord is one finished listening session sent to the backend. Title
// and ArtistName ride along for local sinks and are not part of the wire
// payload.
type PlayRecord struct {
	MediaID    string        `json:"mediaId"`
	ArtistID   string        `json:"artistId"`
	SessionID  string        `json:"sessionId"`
	Duration   time.Duration `json:"-"`
	Seconds    int           `json:"duration"`
	Completed  bool          `json:"completed"`
	Title      string        `json:"-"`
	ArtistName string        `json:"-"`
	StartedAt  time.Time     `json:"-"`
}

// Aggregate holds the backend's play counters for the current user.
type Aggregate struct {
	TotalPlays     int   `json:"totalPlays"`
	CompletedPlays int   `json:"completedPlays"`
	TotalSeconds   int64 `json:"totalSeconds"`
	UniqueMedia    int   `json:"uniqueMedia"`
}

// PendingPlay is the in-memory state of the active listening session.
// At most one exists at a time.
type PendingPlay struct {
	MediaID     string
	ArtistID    string
	Title       string
	ArtistName  string
	SessionID   string
	StartedAt   time.Time
	Accumulated time.Duration
}

// Backend is the remote side of the stats store.
type Backend interface {
	RecordPlay(ctx context.Context, rec PlayRecord) (*Aggregate, error)
	GetStats(ctx context.Context) (*Aggregate, error)
	ResetStats(ctx context.Context) error
}
