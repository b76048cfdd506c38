package state

import (
	"database/sql"
	"strconv"
)

// Preference keys.
const (
	prefVolume   = "volume"
	prefLanguage = "language"
)

// GetPreference returns a preference value. ok is false when unset.
func (m *Manager) GetPreference(key string) (value string, ok bool, err error) {
	err = m.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetPreference stores a preference value.
func (m *Manager) SetPreference(key, value string) error {
	_, err := m.db.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetVolume returns the saved volume level. ok is false when never saved.
func (m *Manager) GetVolume() (volume int, ok bool, err error) {
	v, ok, err := m.GetPreference(prefVolume)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SaveVolume stores the volume level.
func (m *Manager) SaveVolume(volume int) error {
	return m.SetPreference(prefVolume, strconv.Itoa(volume))
}

// GetLanguage returns the preferred audio language. ok is false when unset.
func (m *Manager) GetLanguage() (lang string, ok bool, err error) {
	return m.GetPreference(prefLanguage)
}

// SaveLanguage stores the preferred audio language.
func (m *Manager) SaveLanguage(lang string) error {
	return m.SetPreference(prefLanguage, lang)
}
