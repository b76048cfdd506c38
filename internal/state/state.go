// Package state persists local agent state in a sqlite database: auth
// session, preferences, the download ledger and the Last.fm link with its
// pending scrobble queue.
package state

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "breakwater"
	dbFileName = "breakwater.db"
)

type Manager struct {
	db *sql.DB
}

// Open opens the state database at its XDG data path, creating it and the
// schema as needed.
func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the state database at an explicit path. Tests use
// ":memory:".
func OpenPath(path string) (*Manager, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// DB exposes the underlying database for stores that share it.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// ClearData wipes all user-scoped state: session, preferences, Last.fm link
// and queue, download ledger. The schema stays in place.
func (m *Manager) ClearData() error {
	for _, table := range []string{
		"auth_session",
		"preferences",
		"lastfm_session",
		"lastfm_pending_scrobbles",
		"downloads",
	} {
		if _, err := m.db.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}
	return nil
}
