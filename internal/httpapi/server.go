// Package httpapi serves the built SPA, the Open Graph preview endpoint and
// the REST control surface over the gated player.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dmorel/breakwater/internal/api"
	"github.com/dmorel/breakwater/internal/downloads"
	"github.com/dmorel/breakwater/internal/gate"
	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/state"
	"github.com/dmorel/breakwater/internal/stats"
)

// MediaSource is the slice of the backend client the server needs.
type MediaSource interface {
	GetMedia(ctx context.Context, id string) (*media.Track, error)
	GetMediaByGroup(ctx context.Context, groupID string) ([]media.Track, error)
	GetSubtitles(ctx context.Context, mediaID string) ([]api.Subtitle, error)
}

// Server carries the HTTP surface dependencies.
type Server struct {
	gate    *gate.Gate
	tracker *stats.Tracker
	backend MediaSource
	dls     *downloads.Manager
	worker  *downloads.Worker
	store   *state.Manager
	lastfm  LastfmLinker

	staticDir string
	publicURL string

	httpSrv *http.Server
}

// Options holds the server wiring. Gate, Tracker and Backend are required;
// the rest degrade gracefully when nil.
type Options struct {
	Gate      *gate.Gate
	Tracker   *stats.Tracker
	Backend   MediaSource
	Downloads *downloads.Manager
	Worker    *downloads.Worker
	Store     *state.Manager
	Lastfm    LastfmLinker
	StaticDir string
	PublicURL string
}

// New builds the server and its route table.
func New(addr string, opts Options) *Server {
	s := &Server{
		gate:      opts.Gate,
		tracker:   opts.Tracker,
		backend:   opts.Backend,
		dls:       opts.Downloads,
		worker:    opts.Worker,
		store:     opts.Store,
		lastfm:    opts.Lastfm,
		staticDir: opts.StaticDir,
		publicURL: opts.PublicURL,
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           Recover(CORS(s.routes())),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/og/{mediaId}", s.handleOG)

	mux.HandleFunc("POST /api/player/play", s.handlePlay)
	mux.HandleFunc("POST /api/player/pause", s.handlePause)
	mux.HandleFunc("POST /api/player/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/player/stop", s.handleStop)
	mux.HandleFunc("POST /api/player/next", s.handleNext)
	mux.HandleFunc("POST /api/player/previous", s.handlePrevious)
	mux.HandleFunc("POST /api/player/seek", s.handleSeek)
	mux.HandleFunc("POST /api/player/language", s.handleLanguage)
	mux.HandleFunc("POST /api/player/volume", s.handleVolume)
	mux.HandleFunc("GET /api/player/state", s.handlePlayerState)
	mux.HandleFunc("GET /api/player/events", s.handlePlayerEvents)
	mux.HandleFunc("GET /api/player/queue", s.handleQueueGet)
	mux.HandleFunc("POST /api/player/queue", s.handleQueuePost)

	mux.HandleFunc("GET /api/stats", s.handleStatsGet)
	mux.HandleFunc("POST /api/stats/reset", s.handleStatsReset)

	mux.HandleFunc("GET /api/downloads", s.handleDownloadsList)
	mux.HandleFunc("POST /api/downloads", s.handleDownloadCreate)
	mux.HandleFunc("POST /api/downloads/{id}/retry", s.handleDownloadRetry)
	mux.HandleFunc("DELETE /api/downloads/{id}", s.handleDownloadDelete)

	mux.HandleFunc("GET /api/subtitles/{mediaId}", s.handleSubtitles)

	mux.HandleFunc("POST /api/session", s.handleSessionSave)
	mux.HandleFunc("DELETE /api/session", s.handleSessionClear)

	mux.HandleFunc("GET /api/lastfm", s.handleLastfmStatus)
	mux.HandleFunc("POST /api/lastfm/link", s.handleLastfmLink)
	mux.HandleFunc("POST /api/lastfm/session", s.handleLastfmSession)
	mux.HandleFunc("DELETE /api/lastfm", s.handleLastfmUnlink)

	// Everything else is the SPA.
	mux.Handle("/", s.staticHandler())

	return mux
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("[http] listening on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
