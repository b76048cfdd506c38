package httpapi

import "net/http"

// LastfmLinker is the slice of the Last.fm client the link flow needs.
// The desktop auth flow runs in three steps: request a token, send the user
// to the authorization URL, then exchange the authorized token for a session.
type LastfmLinker interface {
	GetToken() (string, error)
	GetAuthURL(token string) string
	GetSession(token string) (username, sessionKey string, err error)
	SetSessionKey(key string)
	IsAuthenticated() bool
}

func (s *Server) handleLastfmLink(w http.ResponseWriter, _ *http.Request) {
	if s.lastfm == nil {
		writeError(w, http.StatusServiceUnavailable, "lastfm not configured")
		return
	}

	token, err := s.lastfm.GetToken()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":   token,
		"authUrl": s.lastfm.GetAuthURL(token),
	})
}

func (s *Server) handleLastfmSession(w http.ResponseWriter, r *http.Request) {
	if s.lastfm == nil {
		writeError(w, http.StatusServiceUnavailable, "lastfm not configured")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	username, sessionKey, err := s.lastfm.GetSession(req.Token)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveLastfmSession(username, sessionKey); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.lastfm.SetSessionKey(sessionKey)

	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (s *Server) handleLastfmStatus(w http.ResponseWriter, _ *http.Request) {
	if s.lastfm == nil {
		writeJSON(w, http.StatusOK, map[string]any{"configured": false, "linked": false})
		return
	}

	resp := map[string]any{"configured": true, "linked": s.lastfm.IsAuthenticated()}
	if s.store != nil {
		if sess, err := s.store.GetLastfmSession(); err == nil && sess != nil {
			resp["username"] = sess.Username
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLastfmUnlink(w http.ResponseWriter, _ *http.Request) {
	if s.lastfm == nil {
		writeError(w, http.StatusServiceUnavailable, "lastfm not configured")
		return
	}

	if s.store != nil {
		if err := s.store.DeleteLastfmSession(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.lastfm.SetSessionKey("")

	w.WriteHeader(http.StatusNoContent)
}
