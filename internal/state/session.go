package state

import (
	"database/sql"
	"time"
)

// Session holds the backend auth tokens and the tier the backend reported
// at login.
type Session struct {
	AccessToken  string
	RefreshToken string
	Tier         string
	UpdatedAt    time.Time
}

// GetSession returns the stored session, or nil if not logged in.
func (m *Manager) GetSession() (*Session, error) {
	var accessToken, tier string
	var refreshToken sql.NullString
	var updatedAt int64

	err := m.db.QueryRow(`
		SELECT access_token, refresh_token, tier, updated_at FROM auth_session WHERE id = 1
	`).Scan(&accessToken, &refreshToken, &tier, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // nil session means not logged in, not an error
	}
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.String,
		Tier:         tier,
		UpdatedAt:    time.Unix(updatedAt, 0),
	}, nil
}

// SaveSession stores the session after authentication.
func (m *Manager) SaveSession(s Session) error {
	now := time.Now().Unix()
	_, err := m.db.Exec(`
		INSERT INTO auth_session (id, access_token, refresh_token, tier, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			tier = excluded.tier,
			updated_at = excluded.updated_at
	`, s.AccessToken, s.RefreshToken, s.Tier, now)
	return err
}

// DeleteSession removes the stored session (logout).
func (m *Manager) DeleteSession() error {
	_, err := m.db.Exec(`DELETE FROM auth_session WHERE id = 1`)
	return err
}

// Token returns the current access token, or empty when not logged in.
// Satisfies the API client's token source.
func (m *Manager) Token() string {
	s, err := m.GetSession()
	if err != nil || s == nil {
		return ""
	}
	return s.AccessToken
}
