package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Static serves front-end assets from the configured static directory.
// Mounted as the router's GET fallback; the API surface proper lives under
// /api and /v1.
func (a *App) Static(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || a.Cfg.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	// Clean with a leading slash so ".." segments cannot escape the root.
	p := path.Clean("/" + r.URL.Path)
	if p == "/" {
		p = "/index.html"
	}
	full := filepath.Join(a.Cfg.StaticDir, filepath.FromSlash(p))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}
