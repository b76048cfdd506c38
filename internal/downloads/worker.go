package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const (
	jobQueueSize = 64
	// progressStep is how many bytes stream between ledger updates.
	progressStep = 1 << 20
)

// Worker fetches queued downloads to the downloads directory one at a time,
// streaming progress into the ledger.
type Worker struct {
	mgr        *Manager
	dir        string
	httpClient *http.Client
	jobs       chan string
}

// NewWorker creates a worker writing into dir.
func NewWorker(mgr *Manager, dir string) *Worker {
	return &Worker{
		mgr:        mgr,
		dir:        dir,
		httpClient: &http.Client{Timeout: 0}, // streaming, no overall timeout
		jobs:       make(chan string, jobQueueSize),
	}
}

// Enqueue queues a media id for download. Returns false when the queue is
// full.
func (w *Worker) Enqueue(mediaID string) bool {
	select {
	case w.jobs <- mediaID:
		return true
	default:
		return false
	}
}

// Run processes jobs until the context is cancelled. Downloads left in the
// downloading state by a previous run are re-queued first.
func (w *Worker) Run(ctx context.Context) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		log.Printf("[downloads] cannot create dir %s: %v", w.dir, err)
		return
	}

	w.requeueStale()

	for {
		select {
		case <-ctx.Done():
			return
		case mediaID := <-w.jobs:
			if err := w.process(ctx, mediaID); err != nil {
				log.Printf("[downloads] %s failed: %v", mediaID, err)
			}
		}
	}
}

// requeueStale picks up items interrupted mid-download and pending items
// from a previous run.
func (w *Worker) requeueStale() {
	for _, status := range []string{StatusDownloading, StatusPending} {
		items, err := w.mgr.ListByStatus(status)
		if err != nil {
			log.Printf("[downloads] list %s: %v", status, err)
			continue
		}
		for _, d := range items {
			w.Enqueue(d.MediaID)
		}
	}
}

func (w *Worker) process(ctx context.Context, mediaID string) error {
	d, err := w.mgr.Get(mediaID)
	if err != nil {
		return err
	}

	switch d.Status {
	case StatusPending:
		if err := w.mgr.Start(mediaID); err != nil {
			return err
		}
	case StatusDownloading:
		// Already claimed, e.g. via Retry or a stale requeue.
	default:
		return fmt.Errorf("%s is %s, not downloadable", mediaID, d.Status)
	}

	log.Printf("[downloads] fetching %s (%s)", d.Title, d.MediaID)
	filename, size, err := w.fetch(ctx, d)
	if err != nil {
		if markErr := w.mgr.MarkFailed(mediaID, err.Error()); markErr != nil {
			log.Printf("[downloads] mark failed %s: %v", mediaID, markErr)
		}
		return err
	}

	if err := w.mgr.MarkCompleted(mediaID, filename, size); err != nil {
		return err
	}
	log.Printf("[downloads] completed %s (%s)", d.Title, humanize.Bytes(uint64(size)))
	return nil
}

// fetch streams the media URL to a temp file and renames it into place.
func (w *Worker) fetch(ctx context.Context, d *Download) (filename string, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	filename = d.MediaID + urlExt(d.URL)
	tmpPath := filepath.Join(w.dir, filename+".part")
	finalPath := filepath.Join(w.dir, filename)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	total := resp.ContentLength
	pw := &progressWriter{
		onProgress: func(read int64) {
			if err := w.mgr.UpdateProgress(d.MediaID, read, total); err != nil {
				log.Printf("[downloads] progress %s: %v", d.MediaID, err)
			}
		},
	}

	size, err = io.Copy(io.MultiWriter(f, pw), resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("stream body: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("rename: %w", err)
	}
	return filename, size, nil
}

// urlExt extracts the file extension from a media URL's path, ignoring any
// query string or fragment.
func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// progressWriter reports the running byte count every progressStep bytes.
type progressWriter struct {
	read       int64
	lastReport int64
	onProgress func(read int64)
}

var _ io.Writer = (*progressWriter)(nil)

func (p *progressWriter) Write(b []byte) (int, error) {
	p.read += int64(len(b))
	if p.read-p.lastReport >= progressStep {
		p.lastReport = p.read
		p.onProgress(p.read)
	}
	return len(b), nil
}

// FilePath returns the on-disk path for a completed download.
func (w *Worker) FilePath(d *Download) (string, error) {
	if d.Status != StatusCompleted || d.Filename == "" {
		return "", errors.New("downloads: not completed")
	}
	path := filepath.Join(w.dir, d.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
