package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmorel/breakwater/internal/playback"
)

// handlePlayerEvents streams playback events to the UI as server-sent
// events. The subscription is dropped when the client disconnects.
func (s *Server) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	svc := s.gate.Service()
	sub := svc.Subscribe()
	defer svc.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.StateChanged:
			if !send("state", map[string]string{"state": stateName(e.Current)}) {
				return
			}
		case e := <-sub.TrackChanged:
			payload := map[string]any{"index": e.Index}
			if e.Current != nil {
				payload["track"] = toTrackJSON(*e.Current)
			}
			if !send("track", payload) {
				return
			}
		case e := <-sub.PositionChanged:
			if !send("position", map[string]float64{"position": e.Position.Seconds()}) {
				return
			}
		case e := <-sub.QueueChanged:
			tracks := make([]trackJSON, 0, len(e.Tracks))
			for _, tr := range e.Tracks {
				tracks = append(tracks, toTrackJSON(tr))
			}
			if !send("queue", map[string]any{"tracks": tracks, "index": e.Index}) {
				return
			}
		case e := <-sub.VolumeChanged:
			if !send("volume", map[string]int{"volume": e.Volume}) {
				return
			}
		case e := <-sub.Error:
			if !send("error", map[string]string{"operation": e.Operation, "error": e.Err.Error()}) {
				return
			}
		}
	}
}

func stateName(st playback.State) string {
	return strings.ToLower(st.String())
}
