package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmorel/breakwater/internal/api"
	"github.com/dmorel/breakwater/internal/config"
	"github.com/dmorel/breakwater/internal/downloads"
	"github.com/dmorel/breakwater/internal/entitlement"
	"github.com/dmorel/breakwater/internal/gate"
	"github.com/dmorel/breakwater/internal/httpapi"
	"github.com/dmorel/breakwater/internal/playback"
	"github.com/dmorel/breakwater/internal/player"
	"github.com/dmorel/breakwater/internal/playlist"
	"github.com/dmorel/breakwater/internal/scrobble"
	"github.com/dmorel/breakwater/internal/state"
	"github.com/dmorel/breakwater/internal/stats"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[boot] %v", err)
	}
}

func run() error {
	// Secrets land in the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		cfg.Lastfm.APIKey = v
	}
	if v := os.Getenv("LASTFM_API_SECRET"); v != "" {
		cfg.Lastfm.APISecret = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := state.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	backend := api.NewClient(cfg.Backend.URL, store)

	svc := playback.New(player.New(nil), playlist.NewQueue())
	defer svc.Close()

	if vol, ok, err := store.GetVolume(); err == nil && ok {
		svc.SetVolume(vol)
	}

	rules := entitlement.NewRules(startTier(cfg, store), cfg.Entitlement.FreeDailyQuota, nil)
	rules.OnDenial(func(d entitlement.Denial) {
		log.Printf("[gate] denied: %s (tier %s)", d.Reason, d.Tier)
	})

	tracker := stats.NewTracker(backend,
		stats.WithMinRecordDuration(time.Duration(cfg.Playback.MinRecordSeconds)*time.Second),
		stats.WithCacheTTL(time.Duration(cfg.Playback.StatsCacheSeconds)*time.Second),
	)

	g := gate.New(svc, rules, tracker)
	go g.Run(ctx)

	dls := downloads.New(store.DB())
	worker := downloads.NewWorker(dls, cfg.Downloads.Dir)
	go worker.Run(ctx)

	opts := httpapi.Options{
		Gate:      g,
		Tracker:   tracker,
		Backend:   backend,
		Downloads: dls,
		Worker:    worker,
		Store:     store,
		StaticDir: cfg.StaticDir,
		PublicURL: cfg.PublicURL,
	}
	if cfg.HasLastfmConfig() {
		opts.Lastfm = startScrobbler(ctx, cfg, store, tracker, svc)
	}

	srv := httpapi.New(cfg.Listen, opts)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Print("[boot] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startTier prefers the tier of a stored session over the config default.
func startTier(cfg *config.Config, store *state.Manager) entitlement.Tier {
	name := cfg.Entitlement.Tier
	if sess, err := store.GetSession(); err == nil && sess != nil && sess.Tier != "" {
		name = sess.Tier
	}
	tier, err := entitlement.ParseTier(name)
	if err != nil {
		log.Printf("[boot] %v, falling back to free", err)
		return entitlement.TierFree
	}
	return tier
}

// startScrobbler wires the Last.fm sink. The client starts unauthenticated
// when no session is stored; linking through the HTTP API activates it
// without a restart. The returned client backs the link endpoints.
func startScrobbler(ctx context.Context, cfg *config.Config, store *state.Manager, tracker *stats.Tracker, svc playback.Service) *scrobble.Client {
	client := scrobble.NewClient(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)

	if sess, err := store.GetLastfmSession(); err == nil && sess != nil {
		client.SetSessionKey(sess.SessionKey)
		log.Printf("[scrobble] scrobbling as %s", sess.Username)
	} else {
		log.Print("[scrobble] not linked, scrobbling idle until linked")
	}

	scrobbler := scrobble.New(client, store, nil)
	tracker.OnRecorded(scrobbler.HandleRecord)
	go scrobbler.Run(ctx)
	go watchNowPlaying(ctx, svc, scrobbler)
	return client
}

// watchNowPlaying announces track changes to Last.fm.
func watchNowPlaying(ctx context.Context, svc playback.Service, scrobbler *scrobble.Scrobbler) {
	sub := svc.Subscribe()
	defer svc.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.TrackChanged:
			if e.Current != nil {
				scrobbler.NowPlaying(e.Current.ArtistName, e.Current.Title, e.Current.Duration)
			}
		}
	}
}
