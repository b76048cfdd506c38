// internal/scrobble/scrobbler_test.go
package scrobble

import (
	"errors"
	"testing"
	"time"

	"github.com/dmorel/breakwater/internal/state"
	"github.com/dmorel/breakwater/internal/stats"
)

type fakeSubmitter struct {
	authed     bool
	scrobbles  []Track
	nowPlaying []Track
	err        error
}

func (f *fakeSubmitter) Scrobble(t Track) error {
	if f.err != nil {
		return f.err
	}
	f.scrobbles = append(f.scrobbles, t)
	return nil
}

func (f *fakeSubmitter) UpdateNowPlaying(t Track) error {
	f.nowPlaying = append(f.nowPlaying, t)
	return f.err
}

func (f *fakeSubmitter) IsAuthenticated() bool { return f.authed }

func openStore(t *testing.T) *state.Manager {
	t.Helper()
	st, err := state.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func record(completed bool) stats.PlayRecord {
	return stats.PlayRecord{
		MediaID:    "m1",
		Title:      "Song",
		ArtistName: "Artist",
		Duration:   3 * time.Minute,
		Seconds:    180,
		Completed:  completed,
		StartedAt:  time.Now(),
	}
}

func TestScrobbler_HandleRecord_Completed(t *testing.T) {
	client := &fakeSubmitter{authed: true}
	s := New(client, openStore(t), nil)

	s.HandleRecord(record(true))

	if len(client.scrobbles) != 1 {
		t.Fatalf("scrobbles = %d, want 1", len(client.scrobbles))
	}
	if client.scrobbles[0].Artist != "Artist" || client.scrobbles[0].Title != "Song" {
		t.Errorf("scrobble = %+v, want Artist/Song", client.scrobbles[0])
	}
}

func TestScrobbler_HandleRecord_IncompleteSkipped(t *testing.T) {
	client := &fakeSubmitter{authed: true}
	s := New(client, openStore(t), nil)

	s.HandleRecord(record(false))

	if len(client.scrobbles) != 0 {
		t.Errorf("scrobbles = %d, want 0 for incomplete play", len(client.scrobbles))
	}
}

func TestScrobbler_HandleRecord_NotAuthenticated(t *testing.T) {
	client := &fakeSubmitter{authed: false}
	store := openStore(t)
	s := New(client, store, nil)

	s.HandleRecord(record(true))

	if len(client.scrobbles) != 0 {
		t.Error("unauthenticated scrobbler must not submit")
	}
	pending, _ := store.GetPendingScrobbles()
	if len(pending) != 0 {
		t.Error("unauthenticated scrobbler must not queue")
	}
}

func TestScrobbler_FailureQueuesPending(t *testing.T) {
	client := &fakeSubmitter{authed: true, err: errors.New("network down")}
	store := openStore(t)
	s := New(client, store, nil)

	s.HandleRecord(record(true))

	pending, err := store.GetPendingScrobbles()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Title != "Song" || pending[0].MediaID != "m1" {
		t.Errorf("pending = %+v, want Song/m1", pending[0])
	}
}

func TestScrobbler_RetryPending(t *testing.T) {
	client := &fakeSubmitter{authed: true, err: errors.New("down")}
	store := openStore(t)
	s := New(client, store, nil)

	s.HandleRecord(record(true))

	// Network recovers; retry drains the queue.
	client.err = nil
	s.retryPending()

	if len(client.scrobbles) != 1 {
		t.Errorf("scrobbles = %d, want 1 after retry", len(client.scrobbles))
	}
	pending, _ := store.GetPendingScrobbles()
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 after retry", len(pending))
	}
}

func TestScrobbler_RetryIncrementsAttempts(t *testing.T) {
	client := &fakeSubmitter{authed: true, err: errors.New("down")}
	store := openStore(t)
	s := New(client, store, nil)

	s.HandleRecord(record(true))
	s.retryPending()

	pending, _ := store.GetPendingScrobbles()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", pending[0].Attempts)
	}
	if pending[0].LastError != "down" {
		t.Errorf("LastError = %q, want down", pending[0].LastError)
	}
}

func TestScrobbler_RetrySkipsExhausted(t *testing.T) {
	client := &fakeSubmitter{authed: true, err: errors.New("down")}
	store := openStore(t)
	s := New(client, store, nil)

	s.HandleRecord(record(true))

	for i := 0; i < maxAttempts; i++ {
		s.retryPending()
	}

	// Attempts exhausted: even with the network back, no submission.
	client.err = nil
	s.retryPending()

	if len(client.scrobbles) != 0 {
		t.Errorf("scrobbles = %d, want 0 after attempt limit", len(client.scrobbles))
	}
}

func TestScrobbler_NowPlaying(t *testing.T) {
	client := &fakeSubmitter{authed: true}
	s := New(client, openStore(t), nil)

	s.NowPlaying("Artist", "Song", 3*time.Minute)

	if len(client.nowPlaying) != 1 {
		t.Errorf("nowPlaying = %d, want 1", len(client.nowPlaying))
	}
}
