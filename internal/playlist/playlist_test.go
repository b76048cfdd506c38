// internal/playlist/playlist_test.go
package playlist

import (
	"testing"

	"github.com/dmorel/breakwater/internal/media"
)

func TestNewPlaylist(t *testing.T) {
	p := NewPlaylist()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestPlaylist_Add(t *testing.T) {
	p := NewPlaylist()

	p.Add(media.Track{ID: "m1", Title: "One"})
	p.Add(media.Track{ID: "m2"}, media.Track{ID: "m3"})

	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	if tr := p.Track(0); tr == nil || tr.Title != "One" {
		t.Errorf("Track(0) = %v, want title One", tr)
	}
}

func TestPlaylist_Remove(t *testing.T) {
	p := NewPlaylist()
	p.Add(media.Track{ID: "m1"}, media.Track{ID: "m2"}, media.Track{ID: "m3"})

	if !p.Remove(1) {
		t.Fatal("Remove(1) returned false")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	if tr := p.Track(1); tr == nil || tr.ID != "m3" {
		t.Errorf("Track(1) = %v, want m3", tr)
	}

	if p.Remove(5) {
		t.Error("Remove out of bounds should return false")
	}
	if p.Remove(-1) {
		t.Error("Remove negative index should return false")
	}
}

func TestPlaylist_Tracks_ReturnsCopy(t *testing.T) {
	p := NewPlaylist()
	p.Add(media.Track{ID: "m1"})

	tracks := p.Tracks()
	tracks[0].ID = "mutated"

	if tr := p.Track(0); tr.ID != "m1" {
		t.Errorf("Track(0).ID = %q, want m1 (Tracks() must copy)", tr.ID)
	}
}

func TestPlaylist_Track_OutOfBounds(t *testing.T) {
	p := NewPlaylist()

	if p.Track(0) != nil {
		t.Error("Track(0) on empty playlist should be nil")
	}
}

func TestPlaylist_Move(t *testing.T) {
	p := NewPlaylist()
	p.Add(media.Track{ID: "m0"}, media.Track{ID: "m1"}, media.Track{ID: "m2"})

	if !p.Move(0, 2) {
		t.Fatal("Move(0, 2) returned false")
	}

	want := []string{"m1", "m2", "m0"}
	for i, id := range want {
		if tr := p.Track(i); tr.ID != id {
			t.Errorf("Track(%d).ID = %q, want %q", i, tr.ID, id)
		}
	}

	if p.Move(0, 9) {
		t.Error("Move with out-of-bounds target should return false")
	}
	if !p.Move(1, 1) {
		t.Error("Move to same index should return true")
	}
}

func TestPlaylist_Clear(t *testing.T) {
	p := NewPlaylist()
	p.Add(media.Track{ID: "m0"})

	p.Clear()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestPlaylist_Set(t *testing.T) {
	p := NewPlaylist()
	p.Add(media.Track{ID: "m0"}, media.Track{ID: "m1"})

	if !p.Set(1, media.Track{ID: "m1-es"}) {
		t.Fatal("Set(1) returned false")
	}
	if tr := p.Track(1); tr.ID != "m1-es" {
		t.Errorf("Track(1).ID = %q, want m1-es", tr.ID)
	}
	if tr := p.Track(0); tr.ID != "m0" {
		t.Errorf("Track(0).ID = %q, want m0", tr.ID)
	}

	if p.Set(2, media.Track{ID: "x"}) {
		t.Error("Set with out-of-bounds index should return false")
	}
	if p.Set(-1, media.Track{ID: "x"}) {
		t.Error("Set with negative index should return false")
	}
}
