// Package static provides the embedded chat widget assets.
package static

import (
	"embed"
	"net/http"
)

//go:embed index.html app.js style.css
var assetsFS embed.FS

// Handler returns an http.Handler serving the embedded assets.
func Handler() http.Handler {
	return http.FileServerFS(assetsFS)
}

// Index serves the chat widget page.
func Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, assetsFS, "index.html")
}
