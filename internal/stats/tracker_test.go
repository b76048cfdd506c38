// internal/stats/tracker_test.go
package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmorel/breakwater/internal/media"
)

type fakeBackend struct {
	mu        sync.Mutex
	records   []PlayRecord
	agg       Aggregate
	getCalls  int
	getErr    error
	recordErr error
	resetErr  error
}

func (f *fakeBackend) RecordPlay(_ context.Context, rec PlayRecord) (*Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.records = append(f.records, rec)
	f.agg.TotalPlays++
	if rec.Completed {
		f.agg.CompletedPlays++
	}
	f.agg.TotalSeconds += int64(rec.Seconds)
	cp := f.agg
	return &cp, nil
}

func (f *fakeBackend) GetStats(_ context.Context) (*Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = f.getCalls + 1
	if f.getErr != nil {
		return nil, f.getErr
	}
	cp := f.agg
	return &cp, nil
}

func (f *fakeBackend) ResetStats(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.agg = Aggregate{}
	return nil
}

func (f *fakeBackend) recorded() []PlayRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PlayRecord(nil), f.records...)
}

func newTestTracker(backend *fakeBackend) (*Tracker, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewTracker(backend, WithClock(clock)), clock
}

func TestTracker_RecordPlay(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1", ArtistID: "a1"})
	tr.AddDuration(45 * time.Second)
	tr.RecordPlay(ctx, true)

	recs := backend.recorded()
	if len(recs) != 1 {
		t.Fatalf("recorded %d plays, want 1", len(recs))
	}
	rec := recs[0]
	if rec.MediaID != "m1" || rec.ArtistID != "a1" {
		t.Errorf("record = %+v, want m1/a1", rec)
	}
	if rec.Seconds != 45 {
		t.Errorf("Seconds = %d, want 45", rec.Seconds)
	}
	if !rec.Completed {
		t.Error("Completed should be true")
	}
	if rec.SessionID == "" {
		t.Error("SessionID should be set")
	}
	if tr.Pending() != nil {
		t.Error("Pending() should be nil after RecordPlay")
	}
}

func TestTracker_ShortSessionDiscarded(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "clip"})
	tr.AddDuration(5 * time.Second)
	tr.RecordPlay(ctx, false)

	if got := len(backend.recorded()); got != 0 {
		t.Errorf("recorded %d plays, want 0 (below minimum duration)", got)
	}
}

func TestTracker_ExactThresholdRecorded(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(DefaultMinRecordDuration)
	tr.RecordPlay(ctx, false)

	if got := len(backend.recorded()); got != 1 {
		t.Errorf("recorded %d plays, want 1 at exact threshold", got)
	}
}

func TestTracker_StartPlayFlushesPrevious(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(30 * time.Second)
	tr.StartPlay(ctx, media.Track{ID: "m2"})

	recs := backend.recorded()
	if len(recs) != 1 {
		t.Fatalf("recorded %d plays, want 1", len(recs))
	}
	if recs[0].MediaID != "m1" {
		t.Errorf("flushed MediaID = %q, want m1", recs[0].MediaID)
	}
	if recs[0].Completed {
		t.Error("interrupted session must flush as not completed")
	}

	// Only the new session remains pending.
	p := tr.Pending()
	if p == nil || p.MediaID != "m2" {
		t.Errorf("Pending() = %v, want m2", p)
	}
}

func TestTracker_AddDurationWithoutSession(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)

	tr.AddDuration(10 * time.Second)
	tr.RecordPlay(context.Background(), false)

	if got := len(backend.recorded()); got != 0 {
		t.Errorf("recorded %d plays, want 0", got)
	}
}

func TestTracker_CustomMinRecordDuration(t *testing.T) {
	backend := &fakeBackend{}
	tr := NewTracker(backend,
		WithClock(clockwork.NewFakeClock()),
		WithMinRecordDuration(2*time.Second))
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(3 * time.Second)
	tr.RecordPlay(ctx, false)

	if got := len(backend.recorded()); got != 1 {
		t.Errorf("recorded %d plays, want 1 with lowered threshold", got)
	}
}

func TestTracker_StatsCache(t *testing.T) {
	backend := &fakeBackend{agg: Aggregate{TotalPlays: 7}}
	tr, clock := newTestTracker(backend)
	ctx := context.Background()

	agg, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if agg.TotalPlays != 7 {
		t.Errorf("TotalPlays = %d, want 7", agg.TotalPlays)
	}

	// Second call within the TTL must not hit the backend.
	if _, err := tr.Stats(ctx); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if backend.getCalls != 1 {
		t.Errorf("getCalls = %d, want 1 (cache hit)", backend.getCalls)
	}

	clock.Advance(DefaultCacheTTL + time.Second)

	if _, err := tr.Stats(ctx); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if backend.getCalls != 2 {
		t.Errorf("getCalls = %d, want 2 after TTL expiry", backend.getCalls)
	}
}

func TestTracker_StatsFetchErrorKeepsCache(t *testing.T) {
	backend := &fakeBackend{agg: Aggregate{TotalPlays: 3}}
	tr, clock := newTestTracker(backend)
	ctx := context.Background()

	if _, err := tr.Stats(ctx); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	clock.Advance(DefaultCacheTTL + time.Second)
	backend.getErr = errors.New("boom")

	agg, err := tr.Stats(ctx)
	if err == nil {
		t.Fatal("Stats should return the fetch error")
	}
	if agg == nil || agg.TotalPlays != 3 {
		t.Errorf("stale aggregate = %v, want TotalPlays 3", agg)
	}
}

func TestTracker_RecordMergesAggregate(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(time.Minute)
	tr.RecordPlay(ctx, true)

	// The aggregate returned by RecordPlay seeds the cache: no extra fetch.
	agg, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if agg.TotalPlays != 1 || agg.CompletedPlays != 1 {
		t.Errorf("aggregate = %+v, want 1 total / 1 completed", agg)
	}
	if backend.getCalls != 0 {
		t.Errorf("getCalls = %d, want 0", backend.getCalls)
	}
}

func TestTracker_RecordErrorLeavesStateUnchanged(t *testing.T) {
	backend := &fakeBackend{recordErr: errors.New("boom")}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(time.Minute)
	tr.RecordPlay(ctx, true)

	if tr.Pending() != nil {
		t.Error("Pending() should be nil even when record fails")
	}
	if got := len(backend.recorded()); got != 0 {
		t.Errorf("recorded %d plays, want 0", got)
	}
}

func TestTracker_Reset(t *testing.T) {
	backend := &fakeBackend{agg: Aggregate{TotalPlays: 5}}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	if _, err := tr.Stats(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// Cache invalidated: next Stats hits the backend again.
	agg, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if agg.TotalPlays != 0 {
		t.Errorf("TotalPlays = %d, want 0 after reset", agg.TotalPlays)
	}
	if backend.getCalls != 2 {
		t.Errorf("getCalls = %d, want 2", backend.getCalls)
	}
}

func TestTracker_OnRecordedHook(t *testing.T) {
	backend := &fakeBackend{}
	tr, _ := newTestTracker(backend)
	ctx := context.Background()

	var hooked []PlayRecord
	tr.OnRecorded(func(rec PlayRecord) { hooked = append(hooked, rec) })

	tr.StartPlay(ctx, media.Track{ID: "m1"})
	tr.AddDuration(time.Minute)
	tr.RecordPlay(ctx, true)

	if len(hooked) != 1 || hooked[0].MediaID != "m1" {
		t.Errorf("hook calls = %v, want one for m1", hooked)
	}

	// Discarded sessions never reach the hook.
	tr.StartPlay(ctx, media.Track{ID: "m2"})
	tr.AddDuration(2 * time.Second)
	tr.RecordPlay(ctx, false)

	if len(hooked) != 1 {
		t.Errorf("hook calls = %d, want 1", len(hooked))
	}
}
