package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// StaticHandler serves the web UI. Paths that do not name a file fall back
// to index.html so client-side routes survive a reload.
type StaticHandler struct {
	dir string
}

// NewStaticHandler serves files below dir.
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	full := filepath.Join(h.dir, filepath.FromSlash(clean))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		http.ServeFile(w, r, full)
		return
	}

	f, err := os.Open(filepath.Join(h.dir, "index.html"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Route not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusNotFound, "Route not found")
		return
	}
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}

// NotFoundHandler answers unknown API routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}
