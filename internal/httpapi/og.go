package httpapi

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/dmorel/breakwater/internal/media"
)

// botUserAgents are the crawlers that get the full meta page. Everyone else
// is a real browser and gets bounced to the SPA route.
var botUserAgents = []string{
	"facebookexternalhit",
	"facebookcatalog",
	"twitterbot",
	"linkedinbot",
	"slackbot",
	"discordbot",
	"telegrambot",
	"whatsapp",
	"googlebot",
	"bingbot",
	"pinterest",
	"redditbot",
	"embedly",
	"vkshare",
}

func isUnfurlBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, bot := range botUserAgents {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}

type ogData struct {
	Title       string
	Description string
	Image       string
	URL         string
	Type        string // og:type, video.other or music.song
	Redirect    string // non-empty for browser requests
}

var ogTemplate = template.Must(template.New("og").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
{{if .Image}}<meta property="og:image" content="{{.Image}}">
{{end}}<meta property="og:url" content="{{.URL}}">
<meta property="og:type" content="{{.Type}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
{{if .Image}}<meta name="twitter:image" content="{{.Image}}">
{{end}}{{if .Redirect}}<meta http-equiv="refresh" content="0;url={{.Redirect}}">
<script>window.location.replace({{.Redirect}});</script>
{{end}}</head>
<body>
<p>{{.Title}}</p>
</body>
</html>
`))

// handleOG renders Open Graph meta for link unfurling. Any backend failure
// degrades to a generic page with a 200 so crawlers still render something.
func (s *Server) handleOG(w http.ResponseWriter, r *http.Request) {
	mediaID := r.PathValue("mediaId")
	watchURL := fmt.Sprintf("%s/watch/%s", s.publicURL, mediaID)

	data := ogData{
		Title:       "Breakwater",
		Description: "Stream and download your library.",
		URL:         watchURL,
		Type:        "website",
	}

	track, err := s.backend.GetMedia(r.Context(), mediaID)
	if err != nil {
		log.Printf("[og] media lookup failed for %s: %v", mediaID, err)
	} else {
		data = ogDataFor(*track, watchURL)
	}

	if !isUnfurlBot(r.UserAgent()) {
		data.Redirect = watchURL
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := ogTemplate.Execute(w, data); err != nil {
		log.Printf("[og] render failed for %s: %v", mediaID, err)
	}
}

func ogDataFor(track media.Track, watchURL string) ogData {
	desc := track.Description
	if desc == "" && track.ArtistName != "" {
		desc = "by " + track.ArtistName
	}

	ogType := "music.song"
	if track.IsVideo() {
		ogType = "video.other"
	}

	return ogData{
		Title:       track.Title,
		Description: desc,
		Image:       track.ThumbnailURL,
		URL:         watchURL,
		Type:        ogType,
	}
}
