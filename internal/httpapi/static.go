package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// staticHandler serves the built SPA. Paths without a matching file fall
// back to index.html so client-side routes deep-link correctly.
func (s *Server) staticHandler() http.Handler {
	fs := http.FileServer(http.Dir(s.staticDir))
	index := filepath.Join(s.staticDir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := filepath.Join(s.staticDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}

		// API misses are real 404s, not the SPA shell.
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, index)
	})
}
