// Package downloads tracks offline copies of media items in sqlite and runs
// the worker that fetches them. Status moves pending to downloading to
// completed or failed; a failed download goes back to downloading only
// through an explicit Retry.
package downloads

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/dmorel/breakwater/internal/db"
	"github.com/dmorel/breakwater/internal/media"
)

// Status constants for download states.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// ErrInvalidTransition is returned when a status change is not allowed from
// the download's current state.
var ErrInvalidTransition = errors.New("downloads: invalid status transition")

// ErrNotFound is returned when no download exists for the media id.
var ErrNotFound = errors.New("downloads: not found")

// Download represents one offline copy job.
type Download struct {
	ID           int64
	MediaID      string
	Title        string
	MediaType    string
	URL          string
	Status       string
	Filename     string
	TotalBytes   int64
	BytesRead    int64
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DownloadedAt *time.Time
}

// Progress returns the download progress percentage.
func (d *Download) Progress() float64 {
	if d.Status == StatusCompleted {
		return 100
	}
	if d.TotalBytes <= 0 {
		return 0
	}
	return float64(d.BytesRead) / float64(d.TotalBytes) * 100
}

// Manager provides database operations for downloads.
type Manager struct {
	db *sql.DB
}

// New creates a new Manager over the shared state database.
func New(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Create registers a pending download for the track. Creating one that
// already exists returns the existing row unchanged.
func (m *Manager) Create(track media.Track) (*Download, error) {
	now := time.Now().Unix()
	mediaType := "audio"
	if track.IsVideo() {
		mediaType = "video"
	}

	err := dbutil.WithTx(m.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO downloads (media_id, title, media_type, url, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(media_id) DO NOTHING
		`, track.ID, track.Title, mediaType, track.DownloadURL, StatusPending, now, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return m.Get(track.ID)
}

// Get returns the download for a media id.
func (m *Manager) Get(mediaID string) (*Download, error) {
	row := m.db.QueryRow(`
		SELECT id, media_id, title, media_type, url, status, filename,
		       total_bytes, bytes_read, error, created_at, updated_at, downloaded_at
		FROM downloads
		WHERE media_id = ?
	`, mediaID)

	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// List returns all downloads ordered by creation date (newest first).
func (m *Manager) List() ([]Download, error) {
	rows, err := m.db.Query(`
		SELECT id, media_id, title, media_type, url, status, filename,
		       total_bytes, bytes_read, error, created_at, updated_at, downloaded_at
		FROM downloads
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, *d)
	}
	return downloads, rows.Err()
}

// ListByStatus returns all downloads in the given status, oldest first.
func (m *Manager) ListByStatus(status string) ([]Download, error) {
	rows, err := m.db.Query(`
		SELECT id, media_id, title, media_type, url, status, filename,
		       total_bytes, bytes_read, error, created_at, updated_at, downloaded_at
		FROM downloads
		WHERE status = ?
		ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, *d)
	}
	return downloads, rows.Err()
}

// Start moves a pending download to downloading.
func (m *Manager) Start(mediaID string) error {
	return m.transition(mediaID, StatusDownloading, StatusPending)
}

// Retry moves a failed download back to downloading and clears its error
// and progress. This is the only way out of the failed state.
func (m *Manager) Retry(mediaID string) error {
	res, err := m.db.Exec(`
		UPDATE downloads
		SET status = ?, error = NULL, bytes_read = 0, total_bytes = 0, updated_at = ?
		WHERE media_id = ? AND status = ?
	`, StatusDownloading, time.Now().Unix(), mediaID, StatusFailed)
	if err != nil {
		return err
	}
	return m.checkAffected(res, mediaID)
}

// MarkCompleted moves a downloading item to completed and records the file.
func (m *Manager) MarkCompleted(mediaID, filename string, size int64) error {
	now := time.Now().Unix()
	res, err := m.db.Exec(`
		UPDATE downloads
		SET status = ?, filename = ?, total_bytes = ?, bytes_read = ?,
		    downloaded_at = ?, updated_at = ?
		WHERE media_id = ? AND status = ?
	`, StatusCompleted, filename, size, size, now, now, mediaID, StatusDownloading)
	if err != nil {
		return err
	}
	return m.checkAffected(res, mediaID)
}

// MarkFailed moves a downloading item to failed with an error message.
func (m *Manager) MarkFailed(mediaID, errMsg string) error {
	res, err := m.db.Exec(`
		UPDATE downloads
		SET status = ?, error = ?, updated_at = ?
		WHERE media_id = ? AND status = ?
	`, StatusFailed, errMsg, time.Now().Unix(), mediaID, StatusDownloading)
	if err != nil {
		return err
	}
	return m.checkAffected(res, mediaID)
}

// UpdateProgress records streamed bytes for a downloading item.
func (m *Manager) UpdateProgress(mediaID string, bytesRead, totalBytes int64) error {
	_, err := m.db.Exec(`
		UPDATE downloads
		SET bytes_read = ?, total_bytes = ?, updated_at = ?
		WHERE media_id = ? AND status = ?
	`, bytesRead, totalBytes, time.Now().Unix(), mediaID, StatusDownloading)
	return err
}

// Delete removes a download record.
func (m *Manager) Delete(mediaID string) error {
	_, err := m.db.Exec(`DELETE FROM downloads WHERE media_id = ?`, mediaID)
	return err
}

// ClearCompleted removes all completed downloads.
func (m *Manager) ClearCompleted() error {
	_, err := m.db.Exec(`DELETE FROM downloads WHERE status = ?`, StatusCompleted)
	return err
}

// transition updates status only when the current status matches from.
func (m *Manager) transition(mediaID, to, from string) error {
	res, err := m.db.Exec(`
		UPDATE downloads SET status = ?, updated_at = ? WHERE media_id = ? AND status = ?
	`, to, time.Now().Unix(), mediaID, from)
	if err != nil {
		return err
	}
	return m.checkAffected(res, mediaID)
}

// checkAffected maps a zero-row update to ErrNotFound or, when the row
// exists in a different state, ErrInvalidTransition.
func (m *Manager) checkAffected(res sql.Result, mediaID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var one int
	err = m.db.QueryRow(`SELECT 1 FROM downloads WHERE media_id = ?`, mediaID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, mediaID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w for %s", ErrInvalidTransition, mediaID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*Download, error) {
	var d Download
	var filename, errMsg sql.NullString
	var createdAt, updatedAt int64
	var downloadedAt sql.NullInt64

	if err := row.Scan(
		&d.ID, &d.MediaID, &d.Title, &d.MediaType, &d.URL, &d.Status, &filename,
		&d.TotalBytes, &d.BytesRead, &errMsg, &createdAt, &updatedAt, &downloadedAt,
	); err != nil {
		return nil, err
	}

	d.Filename = dbutil.NullStringValue(filename)
	d.Error = dbutil.NullStringValue(errMsg)
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	if ts := dbutil.NullInt64ToPtr(downloadedAt); ts != nil {
		t := time.Unix(*ts, 0)
		d.DownloadedAt = &t
	}
	return &d, nil
}
