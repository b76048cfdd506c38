// Package media defines the track model shared across the playback engine.
package media

import "time"

// Type distinguishes audio tracks from video tracks.
type Type string

const (
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
)

// Track is immutable display data sourced from the backend.
type Track struct {
	ID             string
	Title          string
	Type           Type
	Duration       time.Duration
	ArtistID       string
	ArtistName     string
	ContentGroupID string
	Language       string
	Languages      []string // language variants available in the content group
	StreamURL      string
	DownloadURL    string
	ThumbnailURL   string
	Description    string
}

// IsVideo returns true for video tracks.
func (t Track) IsVideo() bool {
	return t.Type == TypeVideo
}

// IsZero returns true if the track carries no identity.
func (t Track) IsZero() bool {
	return t.ID == ""
}
