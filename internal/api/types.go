package api

import (
	"time"

	"github.com/dmorel/breakwater/internal/media"
)

// dataEnvelope is the backend's `{data: ...}` response wrapper.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// successEnvelope is the backend's `{success, message}` response wrapper.
type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// mediaPayload is the backend's media representation.
type mediaPayload struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	DurationSecs   int      `json:"duration"`
	ArtistID       string   `json:"artistId"`
	ArtistName     string   `json:"artistName"`
	ContentGroupID string   `json:"contentGroupId"`
	Language       string   `json:"language"`
	Languages      []string `json:"languages"`
	StreamURL      string   `json:"streamUrl"`
	DownloadURL    string   `json:"downloadUrl"`
	ThumbnailURL   string   `json:"thumbnailUrl"`
	Description    string   `json:"description"`
}

func (p mediaPayload) toTrack() media.Track {
	t := media.Track{
		ID:             p.ID,
		Title:          p.Title,
		Type:           media.TypeAudio,
		Duration:       time.Duration(p.DurationSecs) * time.Second,
		ArtistID:       p.ArtistID,
		ArtistName:     p.ArtistName,
		ContentGroupID: p.ContentGroupID,
		Language:       p.Language,
		Languages:      p.Languages,
		StreamURL:      p.StreamURL,
		DownloadURL:    p.DownloadURL,
		ThumbnailURL:   p.ThumbnailURL,
		Description:    p.Description,
	}
	if p.Type == "video" {
		t.Type = media.TypeVideo
	}
	return t
}

// Subtitle is one subtitle track attached to a media item.
type Subtitle struct {
	ID       string `json:"id"`
	MediaID  string `json:"mediaId"`
	Language string `json:"language"`
	Label    string `json:"label"`
	URL      string `json:"url"`
}
