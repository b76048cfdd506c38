package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/dmorel/breakwater/internal/downloads"
	"github.com/dmorel/breakwater/internal/entitlement"
	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/state"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// trackJSON is the wire shape of a queue or current track.
type trackJSON struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Duration     int    `json:"duration"`
	ArtistID     string `json:"artistId,omitempty"`
	ArtistName   string `json:"artistName,omitempty"`
	Language     string `json:"language,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

func toTrackJSON(t media.Track) trackJSON {
	return trackJSON{
		ID:           t.ID,
		Title:        t.Title,
		Type:         string(t.Type),
		Duration:     int(t.Duration / time.Second),
		ArtistID:     t.ArtistID,
		ArtistName:   t.ArtistName,
		Language:     t.Language,
		ThumbnailURL: t.ThumbnailURL,
	}
}

// playResult reports whether a gated action ran. A denied action is a normal
// response, not an HTTP error.
type playResult struct {
	Started   bool   `json:"started"`
	Reason    string `json:"reason,omitempty"`
	Remaining int    `json:"remaining"`
}

func (s *Server) writePlayResult(w http.ResponseWriter, started bool) {
	res := playResult{Started: started, Remaining: s.gate.Rules().RemainingToday()}
	if !started {
		res.Reason = entitlement.ReasonQuotaExceeded
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaID string `json:"mediaId"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	if req.MediaID == "" {
		started, err := s.gate.Play(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writePlayResult(w, started)
		return
	}

	track, err := s.backend.GetMedia(r.Context(), req.MediaID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media lookup failed")
		return
	}
	started, err := s.gate.PlayTrack(r.Context(), *track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePlayResult(w, started)
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if err := s.gate.Pause(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	started, err := s.gate.Toggle(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePlayResult(w, started)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Stop(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	started, err := s.gate.Next(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePlayResult(w, started)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	started, err := s.gate.Previous(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePlayResult(w, started)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds  int  `json:"seconds"`
		Relative bool `json:"relative"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Relative {
		err = s.gate.Seek(time.Duration(req.Seconds) * time.Second)
	} else {
		err = s.gate.SeekTo(time.Duration(req.Seconds) * time.Second)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	switched, err := s.gate.SwitchLanguage(req.Language, func(lang string) error {
		return s.switchVariant(r, lang)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := map[string]any{"switched": switched}
	if !switched {
		res["reason"] = entitlement.ReasonLanguage
		res["tier"] = s.gate.Rules().Tier().String()
	}
	writeJSON(w, http.StatusOK, res)
}

// switchVariant swaps the current track for its language variant, keeping
// the playhead position. Runs only after the tier check passed.
func (s *Server) switchVariant(r *http.Request, lang string) error {
	if s.store != nil {
		if err := s.store.SaveLanguage(lang); err != nil {
			log.Printf("[http] save language preference: %v", err)
		}
	}

	svc := s.gate.Service()
	cur := svc.CurrentTrack()
	if cur == nil || cur.ContentGroupID == "" || cur.Language == lang {
		return nil
	}

	variants, err := s.backend.GetMediaByGroup(r.Context(), cur.ContentGroupID)
	if err != nil {
		return err
	}
	for _, v := range variants {
		if v.Language != lang {
			continue
		}
		// Swap the queue entry in place so Previous never lands on the
		// old-language copy, then restore the playhead.
		pos := svc.Position()
		if err := svc.ReplaceTrackAt(svc.QueueCurrentIndex(), v); err != nil {
			return err
		}
		return svc.SeekTo(pos)
	}
	return errors.New("no variant for language " + lang)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume int `json:"volume"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Volume < 0 || req.Volume > 100 {
		writeError(w, http.StatusBadRequest, "volume must be 0-100")
		return
	}

	s.gate.Service().SetVolume(req.Volume)
	if s.store != nil {
		if err := s.store.SaveVolume(req.Volume); err != nil {
			log.Printf("[http] save volume preference: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"volume": req.Volume})
}

func (s *Server) handlePlayerState(w http.ResponseWriter, _ *http.Request) {
	svc := s.gate.Service()
	rules := s.gate.Rules()

	res := struct {
		State      string     `json:"state"`
		Position   int        `json:"position"`
		Duration   int        `json:"duration"`
		Volume     int        `json:"volume"`
		Track      *trackJSON `json:"track,omitempty"`
		QueueIndex int        `json:"queueIndex"`
		QueueLen   int        `json:"queueLen"`
		Tier       string     `json:"tier"`
		PlaysToday int        `json:"playsToday"`
		Remaining  int        `json:"remaining"`
	}{
		State:      stateName(svc.State()),
		Position:   int(svc.Position() / time.Second),
		Duration:   int(svc.Duration() / time.Second),
		Volume:     svc.Volume(),
		QueueIndex: svc.QueueCurrentIndex(),
		QueueLen:   svc.QueueLen(),
		Tier:       rules.Tier().String(),
		PlaysToday: rules.PlaysToday(),
		Remaining:  rules.RemainingToday(),
	}
	if track := svc.CurrentTrack(); track != nil {
		tj := toTrackJSON(*track)
		res.Track = &tj
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueueGet(w http.ResponseWriter, _ *http.Request) {
	svc := s.gate.Service()
	tracks := svc.QueueTracks()
	out := make([]trackJSON, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":       out,
		"currentIndex": svc.QueueCurrentIndex(),
	})
}

func (s *Server) handleQueuePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaIDs []string `json:"mediaIds"`
		Replace  bool     `json:"replace"`
		Play     bool     `json:"play"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.MediaIDs) == 0 {
		writeError(w, http.StatusBadRequest, "mediaIds is required")
		return
	}

	tracks := make([]media.Track, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		track, err := s.backend.GetMedia(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusBadGateway, "media lookup failed for "+id)
			return
		}
		tracks = append(tracks, *track)
	}

	svc := s.gate.Service()
	if req.Replace {
		if err := svc.ReplaceTracks(tracks...); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		svc.AddTracks(tracks...)
	}

	if req.Play {
		started, err := s.gate.Play(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writePlayResult(w, started)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queueLen": svc.QueueLen()})
}

func (s *Server) handleStatsGet(w http.ResponseWriter, r *http.Request) {
	agg, err := s.tracker.Stats(r.Context())
	if err != nil && agg == nil {
		writeError(w, http.StatusBadGateway, "stats unavailable")
		return
	}
	// A stale aggregate still serves; the error only logged upstream.
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Reset(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// downloadJSON is the wire shape of a download row.
type downloadJSON struct {
	MediaID   string  `json:"mediaId"`
	Title     string  `json:"title"`
	MediaType string  `json:"mediaType"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Total     int64   `json:"totalBytes"`
	Read      int64   `json:"bytesRead"`
	Error     string  `json:"error,omitempty"`
}

func toDownloadJSON(d downloads.Download) downloadJSON {
	return downloadJSON{
		MediaID:   d.MediaID,
		Title:     d.Title,
		MediaType: d.MediaType,
		Status:    d.Status,
		Progress:  d.Progress(),
		Total:     d.TotalBytes,
		Read:      d.BytesRead,
		Error:     d.Error,
	}
}

func (s *Server) handleDownloadsList(w http.ResponseWriter, _ *http.Request) {
	if s.dls == nil {
		writeError(w, http.StatusServiceUnavailable, "downloads disabled")
		return
	}
	list, err := s.dls.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]downloadJSON, 0, len(list))
	for _, d := range list {
		out = append(out, toDownloadJSON(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownloadCreate(w http.ResponseWriter, r *http.Request) {
	if s.dls == nil {
		writeError(w, http.StatusServiceUnavailable, "downloads disabled")
		return
	}
	var req struct {
		MediaID string `json:"mediaId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MediaID == "" {
		writeError(w, http.StatusBadRequest, "mediaId is required")
		return
	}

	track, err := s.backend.GetMedia(r.Context(), req.MediaID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "media lookup failed")
		return
	}
	if track.DownloadURL == "" {
		writeError(w, http.StatusUnprocessableEntity, "media has no download url")
		return
	}

	d, err := s.dls.Create(*track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.worker != nil {
		s.worker.Enqueue(d.MediaID)
	}
	writeJSON(w, http.StatusAccepted, toDownloadJSON(*d))
}

func (s *Server) handleDownloadRetry(w http.ResponseWriter, r *http.Request) {
	if s.dls == nil {
		writeError(w, http.StatusServiceUnavailable, "downloads disabled")
		return
	}
	id := r.PathValue("id")
	if err := s.dls.Retry(id); err != nil {
		switch {
		case errors.Is(err, downloads.ErrNotFound):
			writeError(w, http.StatusNotFound, "download not found")
		case errors.Is(err, downloads.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "download is not in a failed state")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if s.worker != nil {
		s.worker.Enqueue(id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDownloadDelete(w http.ResponseWriter, r *http.Request) {
	if s.dls == nil {
		writeError(w, http.StatusServiceUnavailable, "downloads disabled")
		return
	}
	if err := s.dls.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	subs, err := s.backend.GetSubtitles(r.Context(), r.PathValue("mediaId"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "subtitle lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no state store")
		return
	}
	var req struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Tier         string `json:"tier"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	tier := entitlement.TierFree
	if req.Tier != "" {
		t, err := entitlement.ParseTier(req.Tier)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tier = t
	}

	if err := s.store.SaveSession(state.Session{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Tier:         tier.String(),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.gate.Rules().SetTier(tier)
	writeJSON(w, http.StatusOK, map[string]string{"tier": tier.String()})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, _ *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no state store")
		return
	}
	if err := s.store.ClearData(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.gate.Rules().SetTier(entitlement.TierFree)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
