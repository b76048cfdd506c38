// Package playlist provides the ordered track list and the playing queue
// that backs the playback service.
package playlist

import "github.com/dmorel/breakwater/internal/media"

// Playlist holds an ordered collection of tracks.
type Playlist struct {
	tracks []media.Track
}

// NewPlaylist creates a new empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{
		tracks: make([]media.Track, 0),
	}
}

// Add appends tracks to the playlist.
func (p *Playlist) Add(tracks ...media.Track) {
	p.tracks = append(p.tracks, tracks...)
}

// Remove removes the track at the given index.
// Returns false if index is out of bounds.
func (p *Playlist) Remove(index int) bool {
	if index < 0 || index >= len(p.tracks) {
		return false
	}
	p.tracks = append(p.tracks[:index], p.tracks[index+1:]...)
	return true
}

// Set replaces the track at the given index.
// Returns false if index is out of bounds.
func (p *Playlist) Set(index int, track media.Track) bool {
	if index < 0 || index >= len(p.tracks) {
		return false
	}
	p.tracks[index] = track
	return true
}

// Clear removes all tracks from the playlist.
func (p *Playlist) Clear() {
	p.tracks = p.tracks[:0]
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []media.Track {
	result := make([]media.Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// Track returns the track at the given index, or nil if out of bounds.
func (p *Playlist) Track(index int) *media.Track {
	if index < 0 || index >= len(p.tracks) {
		return nil
	}
	return &p.tracks[index]
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Move moves the track at fromIndex to toIndex.
// Returns false if either index is out of bounds.
func (p *Playlist) Move(fromIndex, toIndex int) bool {
	if fromIndex < 0 || fromIndex >= len(p.tracks) {
		return false
	}
	if toIndex < 0 || toIndex >= len(p.tracks) {
		return false
	}
	if fromIndex == toIndex {
		return true
	}

	track := p.tracks[fromIndex]
	p.tracks = append(p.tracks[:fromIndex], p.tracks[fromIndex+1:]...)
	p.tracks = append(p.tracks[:toIndex], append([]media.Track{track}, p.tracks[toIndex:]...)...)
	return true
}
