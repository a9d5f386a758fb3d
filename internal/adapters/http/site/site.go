// Package site serves the game client's static files.
package site

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// Cache policies.
const (
	cacheHTML   = "no-cache"
	cacheAssets = "public, max-age=600"
)

// extraTypes are content types the platform MIME table may lack.
var extraTypes = map[string]string{
	".track": "application/octet-stream",
	".glb":   "model/gltf-binary",
	".wasm":  "application/wasm",
	".woff2": "font/woff2",
	".js":    "text/javascript; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".svg":   "image/svg+xml",
	".json":  "application/json; charset=utf-8",
}

var registerTypes sync.Once

// Handler serves dir with the site's cache policy.
func Handler(dir string) http.Handler {
	registerTypes.Do(func() {
		for ext, typ := range extraTypes {
			_ = mime.AddExtensionType(ext, typ)
		}
	})

	files := http.FileServer(noListing{http.Dir(dir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cachePolicy(r.URL.Path))
		files.ServeHTTP(w, r)
	})
}

// noListing hides directories that have no index.html, so the file server
// answers 404 instead of rendering a listing.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}
	index, err := n.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	_ = index.Close()
	return f, nil
}

func cachePolicy(p string) string {
	if strings.HasSuffix(p, "/") {
		return cacheHTML
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm", "":
		return cacheHTML
	default:
		return cacheAssets
	}
}

// Register serves dir for every GET path not claimed by an earlier route.
// An empty dir registers nothing.
func Register(r *mux.Router, dir string) {
	if r == nil {
		panic("router is nil")
	}
	if dir == "" {
		return
	}
	r.PathPrefix("/").Handler(Handler(dir)).Methods(http.MethodGet, http.MethodHead)
}
